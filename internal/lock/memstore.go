package lock

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	token     string
	expiresAt time.Time
}

// MemStore is an in-process Store used by tests and by deployments that run a
// single worker process.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (s *MemStore) AcquireOrRenew(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && entry.token != token && entry.expiresAt.After(s.now()) {
		return false, nil
	}
	s.entries[key] = memEntry{token: token, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemStore) ReleaseIfOwner(_ context.Context, key, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.token != token || !entry.expiresAt.After(s.now()) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *MemStore) ExtendIfOwner(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.token != token || !entry.expiresAt.After(s.now()) {
		return false, nil
	}
	entry.expiresAt = s.now().Add(ttl)
	s.entries[key] = entry
	return true, nil
}

// Holder reports the current token for a key, for test instrumentation.
func (s *MemStore) Holder(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || !entry.expiresAt.After(s.now()) {
		return "", false
	}
	return entry.token, true
}
