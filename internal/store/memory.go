package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and local development. Metadata is
// deep-copied through JSON on every access so callers can never alias the
// stored bags.
type Memory struct {
	mu       sync.RWMutex
	entities map[string]Entity
	seq      int
}

func NewMemory() *Memory {
	return &Memory{entities: make(map[string]Entity)}
}

func (s *Memory) Show(_ context.Context, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyEntity(entity), nil
}

func (s *Memory) Query(_ context.Context, filter Filter) ([]Entity, Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entity
	for _, entity := range s.entities {
		if entity.Type != filter.Type {
			continue
		}
		if !metadataMatches(entity.Metadata, filter.Equals) {
			continue
		}
		matched = append(matched, copyEntity(entity))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	page, perPage := normalizePage(filter)
	meta := Meta{
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(matched),
		TotalPages: totalPages(len(matched), perPage),
	}

	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, meta, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], meta, nil
}

func (s *Memory) Create(_ context.Context, entity Entity) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entity.ID == "" {
		s.seq++
		entity.ID = fmt.Sprintf("%s-%d", entity.Type, s.seq)
	}
	if entity.Metadata == nil {
		entity.Metadata = map[string]any{}
	}
	now := time.Now()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	s.entities[entity.ID] = copyEntity(entity)
	return copyEntity(entity), nil
}

func (s *Memory) UpdateMetadata(_ context.Context, id string, partial map[string]any) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	merged := copyEntity(entity)
	for key, value := range copyMetadata(partial) {
		merged.Metadata[key] = value
	}
	merged.UpdatedAt = time.Now()

	s.entities[id] = merged
	return copyEntity(merged), nil
}

func metadataMatches(metadata, equals map[string]any) bool {
	for key, want := range equals {
		got, ok := metadata[key]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares through JSON so int64(5) stored by a test matches
// float64(5) decoded from a bag.
func looseEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(aj) == string(bj)
}

func copyEntity(entity Entity) Entity {
	entity.Metadata = copyMetadata(entity.Metadata)
	return entity
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	buf, err := json.Marshal(metadata)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return map[string]any{}
	}
	return out
}
