package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG persists entities as JSONB rows.
//
//	create table if not exists entities (
//	    id         text primary key,
//	    type       text not null,
//	    metadata   jsonb not null default '{}'::jsonb,
//	    created_at timestamptz not null default now(),
//	    updated_at timestamptz not null default now()
//	);
//	create index if not exists entities_type_idx on entities (type);
//	create index if not exists entities_metadata_idx on entities using gin (metadata);
type PG struct {
	db *pgxpool.Pool
}

func NewPG(db *pgxpool.Pool) *PG {
	return &PG{db: db}
}

func (s *PG) Show(ctx context.Context, id string) (Entity, error) {
	row := s.db.QueryRow(ctx, `
		select id, type, metadata, created_at, updated_at
		from entities where id = $1
	`, id)
	entity, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

func (s *PG) Query(ctx context.Context, filter Filter) ([]Entity, Meta, error) {
	page, perPage := normalizePage(filter)

	where := "type = $1"
	args := []any{filter.Type}
	if len(filter.Equals) > 0 {
		contained, err := json.Marshal(filter.Equals)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("encode filter: %w", err)
		}
		where += fmt.Sprintf(" and metadata @> $%d", len(args)+1)
		args = append(args, string(contained))
	}

	var totalItems int
	if err := s.db.QueryRow(ctx, "select count(*) from entities where "+where, args...).Scan(&totalItems); err != nil {
		return nil, Meta{}, fmt.Errorf("count entities: %w", err)
	}

	query := fmt.Sprintf(`
		select id, type, metadata, created_at, updated_at
		from entities where %s
		order by created_at desc, id
		limit $%d offset $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, Meta{}, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, Meta{}, err
	}

	meta := Meta{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages(totalItems, perPage),
	}
	return entities, meta, nil
}

func (s *PG) Create(ctx context.Context, entity Entity) (Entity, error) {
	metadata := entity.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	row := s.db.QueryRow(ctx, `
		insert into entities (id, type, metadata)
		values ($1, $2, $3)
		returning id, type, metadata, created_at, updated_at
	`, entity.ID, entity.Type, metadata)
	return scanEntity(row)
}

// UpdateMetadata shallow-merges the partial into the stored bag via jsonb
// concatenation: only top-level keys named in the partial are replaced.
func (s *PG) UpdateMetadata(ctx context.Context, id string, partial map[string]any) (Entity, error) {
	row := s.db.QueryRow(ctx, `
		update entities
		set metadata = metadata || $2, updated_at = now()
		where id = $1
		returning id, type, metadata, created_at, updated_at
	`, id, partial)
	entity, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

func scanEntity(row pgx.Row) (Entity, error) {
	var entity Entity
	if err := row.Scan(&entity.ID, &entity.Type, &entity.Metadata, &entity.CreatedAt, &entity.UpdatedAt); err != nil {
		return Entity{}, err
	}
	return entity, nil
}
