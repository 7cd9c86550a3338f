package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReentrant(t *testing.T) {
	store := NewMemStore()
	l := New(store, "plan", "p1", Options{TTL: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond})

	require.NoError(t, l.Acquire(context.Background()))
	// Same token renews instead of conflicting.
	require.NoError(t, l.Acquire(context.Background()))

	token, held := store.Holder(Key("plan", "p1"))
	require.True(t, held)
	assert.Equal(t, l.token, token)
}

func TestAcquireContention(t *testing.T) {
	store := NewMemStore()
	first := New(store, "plan", "p1", Options{TTL: time.Minute, MaxRetries: 2, RetryDelay: time.Millisecond})
	second := New(store, "plan", "p1", Options{TTL: time.Minute, MaxRetries: 2, RetryDelay: time.Millisecond})

	require.NoError(t, first.Acquire(context.Background()))

	err := second.Acquire(context.Background())
	require.ErrorIs(t, err, ErrNotAcquired)

	released, err := first.Release(context.Background())
	require.NoError(t, err)
	require.True(t, released)

	require.NoError(t, second.Acquire(context.Background()))
}

func TestReleaseAfterExpiry(t *testing.T) {
	store := NewMemStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	l := New(store, "plan", "p1", Options{TTL: 10 * time.Millisecond, MaxRetries: 1, RetryDelay: time.Millisecond})
	require.NoError(t, l.Acquire(context.Background()))

	base = base.Add(time.Second)

	released, err := l.Release(context.Background())
	require.NoError(t, err)
	assert.False(t, released, "release after expiry reports the lock as already gone")
}

func TestExtendKeepsOwnership(t *testing.T) {
	store := NewMemStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	l := New(store, "plan", "p1", Options{TTL: 100 * time.Millisecond, MaxRetries: 1, RetryDelay: time.Millisecond})
	require.NoError(t, l.Acquire(context.Background()))

	ok, err := l.Extend(context.Background(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	base = base.Add(30 * time.Second)
	_, held := store.Holder(Key("plan", "p1"))
	assert.True(t, held)
}

func TestMutualExclusion(t *testing.T) {
	store := NewMemStore()

	var (
		mu      sync.Mutex
		windows [][2]time.Time
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := New(store, "plan", "shared", Options{TTL: time.Minute, MaxRetries: 200, RetryDelay: time.Millisecond})
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			start := time.Now()
			time.Sleep(2 * time.Millisecond)
			end := time.Now()
			if _, err := l.Release(context.Background()); err != nil {
				t.Error(err)
			}

			mu.Lock()
			windows = append(windows, [2]time.Time{start, end})
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, windows, 8)
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			overlap := a[0].Before(b[1]) && b[0].Before(a[1])
			assert.False(t, overlap, "critical sections %d and %d overlap", i, j)
		}
	}
}
