package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("entity not found")

// Entity types kept in the document store.
const (
	TypeOrder  = "order"
	TypePlan   = "plan"
	TypeRating = "rating"
	TypeUser   = "user"
)

// Entity is a marketplace-style document: a stable id plus a loosely typed
// metadata bag.
type Entity struct {
	ID        string
	Type      string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filter struct {
	Type string
	// Equals filters on top-level metadata fields.
	Equals  map[string]any
	Page    int
	PerPage int
}

type Meta struct {
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
}

// Store is the document-store contract the core depends on. UpdateMetadata
// performs a shallow merge at the top level of the metadata bag only; nested
// structures must be read-modified-written whole by callers, which is why
// plan mutation happens under a distributed lock.
type Store interface {
	Show(ctx context.Context, id string) (Entity, error)
	Query(ctx context.Context, filter Filter) ([]Entity, Meta, error)
	Create(ctx context.Context, entity Entity) (Entity, error)
	UpdateMetadata(ctx context.Context, id string, partial map[string]any) (Entity, error)
}

func normalizePage(filter Filter) (int, int) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 100
	}
	return page, perPage
}

func totalPages(totalItems, perPage int) int {
	if totalItems == 0 {
		return 0
	}
	return (totalItems + perPage - 1) / perPage
}
