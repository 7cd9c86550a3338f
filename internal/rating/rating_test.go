package rating

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	entities := store.NewMemory()
	_, err := entities.Create(context.Background(), store.Entity{
		ID:       "rating-1",
		Type:     store.TypeRating,
		Metadata: map[string]any{"rating": 4, "orderId": "order-1"},
	})
	require.NoError(t, err)

	return &Service{
		Store:    entities,
		Locks:    lock.NewMemStore(),
		LockOpts: lock.Options{TTL: time.Second, MaxRetries: 500, RetryDelay: time.Millisecond},
	}, entities
}

func replies(t *testing.T, entities *store.Memory) []Reply {
	t.Helper()
	entity, err := entities.Show(context.Background(), "rating-1")
	require.NoError(t, err)
	out, err := RepliesFromEntity(entity)
	require.NoError(t, err)
	return out
}

func TestAppendReplyRoles(t *testing.T) {
	svc, entities := newService(t)

	admin, err := svc.AppendReply(context.Background(), "rating-1", Reply{
		ReplyRole: RoleAdmin, AuthorID: "a1", Content: "thanks",
	})
	require.NoError(t, err)
	assert.Empty(t, admin.ApprovalState, "only partner replies carry approval state")

	partner, err := svc.AppendReply(context.Background(), "rating-1", Reply{
		ReplyRole: RolePartner, AuthorID: "p1", Content: "we will improve",
	})
	require.NoError(t, err)
	assert.Equal(t, ApprovalPending, partner.ApprovalState)

	_, err = svc.AppendReply(context.Background(), "rating-1", Reply{ReplyRole: "ghost"})
	require.ErrorIs(t, err, ErrInvalidRole)

	require.Len(t, replies(t, entities), 2)
}

func TestSetReplyApproval(t *testing.T) {
	svc, entities := newService(t)

	partner, err := svc.AppendReply(context.Background(), "rating-1", Reply{
		ReplyRole: RolePartner, AuthorID: "p1", Content: "sorry",
	})
	require.NoError(t, err)
	booker, err := svc.AppendReply(context.Background(), "rating-1", Reply{
		ReplyRole: RoleBooker, AuthorID: "b1", Content: "ok",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetReplyApproval(context.Background(), "rating-1", partner.ID, ApprovalApproved))

	err = svc.SetReplyApproval(context.Background(), "rating-1", booker.ID, ApprovalRejected)
	require.Error(t, err, "non-partner replies have no approval workflow")

	err = svc.SetReplyApproval(context.Background(), "rating-1", "missing", ApprovalRejected)
	require.ErrorIs(t, err, ErrReplyNotFound)

	stored := replies(t, entities)
	require.Len(t, stored, 2)
	assert.Equal(t, ApprovalApproved, stored[0].ApprovalState)
}

func TestConcurrentAppendsNoLostReply(t *testing.T) {
	svc, entities := newService(t)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.AppendReply(context.Background(), "rating-1", Reply{
				ReplyRole: RoleParticipant,
				AuthorID:  fmt.Sprintf("u%d", n),
				Content:   "note",
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, replies(t, entities), writers, "every concurrent append survives")
}
