package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotAcquired is returned when the lock could not be taken after all
// retries. Callers must abort their read-modify-write cycle when they see it.
var ErrNotAcquired = errors.New("lock not acquired")

// Store is the shared key-value store backing the lock. Every method must be
// a single atomic server-side operation; the mutual-exclusion guarantee is
// only as strong as the store's atomicity.
type Store interface {
	// AcquireOrRenew sets key to token with the given TTL if the key is
	// absent, expired, or already held by the same token. Returns true when
	// the caller holds the lock afterwards.
	AcquireOrRenew(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseIfOwner deletes key only while its value equals token. Returns
	// false when the lock had already expired or changed hands.
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
	// ExtendIfOwner pushes the expiry forward only while the value equals
	// token.
	ExtendIfOwner(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// Lock is a token-based mutex over a Store. Key form is
// "lock:{entityType}:{entityID}" so that plan merges, order metadata appends
// and rating reply appends all share one protocol.
type Lock struct {
	store      Store
	key        string
	token      string
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
}

type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func New(store Store, entityType, entityID string, opts Options) *Lock {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	return &Lock{
		store:      store,
		key:        Key(entityType, entityID),
		token:      newToken(),
		ttl:        opts.TTL,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

func Key(entityType, entityID string) string {
	return "lock:" + entityType + ":" + entityID
}

// maxRetryDelay caps the backoff growth so a long retry budget does not
// stretch single sleeps past the lock TTL scale.
const maxRetryDelay = 5 * time.Second

// Acquire takes the lock, retrying with exponential backoff
// (retryDelay * 1.5^attempt, capped). Re-acquiring with the same token renews
// the TTL rather than conflicting.
func (l *Lock) Acquire(ctx context.Context) error {
	delay := l.retryDelay
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		ok, err := l.store.AcquireOrRenew(ctx, l.key, l.token, l.ttl)
		if err != nil {
			return fmt.Errorf("acquire %s: %w", l.key, err)
		}
		if ok {
			return nil
		}
		if attempt == l.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * 1.5)
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return fmt.Errorf("%w: %s after %d retries", ErrNotAcquired, l.key, l.maxRetries)
}

// Release gives the lock up. A false return means the lock was already gone
// (expired or taken over); that is not an error for the caller.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	ok, err := l.store.ReleaseIfOwner(ctx, l.key, l.token)
	if err != nil {
		return false, fmt.Errorf("release %s: %w", l.key, err)
	}
	return ok, nil
}

// Extend renews the TTL mid-operation so a long merge does not lose the lock
// before its persist step.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = l.ttl
	}
	ok, err := l.store.ExtendIfOwner(ctx, l.key, l.token, ttl)
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", l.key, err)
	}
	return ok, nil
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("tok-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
