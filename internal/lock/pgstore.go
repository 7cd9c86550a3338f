package lock

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps lock state in a Postgres table. Each operation is a single
// statement, so concurrent holders never observe a read-then-write window.
//
//	create table if not exists locks (
//	    key        text primary key,
//	    token      text not null,
//	    expires_at timestamptz not null
//	);
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) AcquireOrRenew(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		insert into locks (key, token, expires_at)
		values ($1, $2, now() + $3)
		on conflict (key) do update
		set token = excluded.token, expires_at = excluded.expires_at
		where locks.token = excluded.token or locks.expires_at <= now()
	`, key, token, ttl)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) ReleaseIfOwner(ctx context.Context, key, token string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		delete from locks where key = $1 and token = $2 and expires_at > now()
	`, key, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) ExtendIfOwner(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		update locks set expires_at = now() + $3
		where key = $1 and token = $2 and expires_at > now()
	`, key, token, ttl)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
