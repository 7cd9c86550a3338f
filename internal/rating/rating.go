// Package rating manages the review reply workflow. Replies live as an
// array inside the rating entity's metadata, so every append goes through
// the same lock-protected read-modify-write protocol as plan merges.
package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

type ReplyRole string

const (
	RoleAdmin       ReplyRole = "admin"
	RolePartner     ReplyRole = "partner"
	RoleBooker      ReplyRole = "booker"
	RoleParticipant ReplyRole = "participant"
)

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

var (
	ErrReplyNotFound = errors.New("reply not found")
	ErrInvalidRole   = errors.New("invalid reply role")
)

var replySeq atomic.Int64

// Reply is one tagged entry in a rating's reply thread. Only partner
// replies carry an approval state.
type Reply struct {
	ID            string        `json:"id"`
	ReplyRole     ReplyRole     `json:"replyRole"`
	AuthorID      string        `json:"authorId"`
	Content       string        `json:"content"`
	ApprovalState ApprovalState `json:"approvalState,omitempty"`
	CreatedAt     int64         `json:"createdAt"`
}

func validRole(role ReplyRole) bool {
	switch role {
	case RoleAdmin, RolePartner, RoleBooker, RoleParticipant:
		return true
	}
	return false
}

type Service struct {
	Store    store.Store
	Locks    lock.Store
	LockOpts lock.Options
}

// AppendReply adds a reply under the rating's lock. Partner replies enter
// the approval workflow as pending.
func (s *Service) AppendReply(ctx context.Context, ratingID string, reply Reply) (Reply, error) {
	if !validRole(reply.ReplyRole) {
		return Reply{}, fmt.Errorf("%w: %s", ErrInvalidRole, reply.ReplyRole)
	}
	if reply.ID == "" {
		reply.ID = fmt.Sprintf("reply-%d-%d", time.Now().UnixNano(), replySeq.Add(1))
	}
	reply.CreatedAt = time.Now().UnixMilli()
	if reply.ReplyRole == RolePartner {
		reply.ApprovalState = ApprovalPending
	} else {
		reply.ApprovalState = ""
	}

	err := s.withLockedReplies(ctx, ratingID, func(replies []Reply) ([]Reply, error) {
		return append(replies, reply), nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// SetReplyApproval moves a partner reply through the approval workflow.
func (s *Service) SetReplyApproval(ctx context.Context, ratingID, replyID string, state ApprovalState) error {
	if state != ApprovalApproved && state != ApprovalRejected {
		return fmt.Errorf("invalid approval state %q", state)
	}
	return s.withLockedReplies(ctx, ratingID, func(replies []Reply) ([]Reply, error) {
		for i := range replies {
			if replies[i].ID != replyID {
				continue
			}
			if replies[i].ReplyRole != RolePartner {
				return nil, fmt.Errorf("reply %s is not a partner reply", replyID)
			}
			replies[i].ApprovalState = state
			return replies, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrReplyNotFound, replyID)
	})
}

func (s *Service) withLockedReplies(ctx context.Context, ratingID string, mutate func([]Reply) ([]Reply, error)) error {
	ratingLock := lock.New(s.Locks, "rating", ratingID, s.LockOpts)
	if err := ratingLock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		_, _ = ratingLock.Release(context.WithoutCancel(ctx))
	}()

	entity, err := s.Store.Show(ctx, ratingID)
	if err != nil {
		return fmt.Errorf("fetch rating: %w", err)
	}
	replies, err := RepliesFromEntity(entity)
	if err != nil {
		return err
	}

	replies, err = mutate(replies)
	if err != nil {
		return err
	}

	encoded, err := encodeReplies(replies)
	if err != nil {
		return err
	}
	if _, err := s.Store.UpdateMetadata(ctx, ratingID, map[string]any{"replies": encoded}); err != nil {
		return fmt.Errorf("persist replies: %w", err)
	}
	return nil
}

func RepliesFromEntity(entity store.Entity) ([]Reply, error) {
	raw, ok := entity.Metadata["replies"]
	if !ok || raw == nil {
		return nil, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode rating %s replies: %w", entity.ID, err)
	}
	var replies []Reply
	if err := json.Unmarshal(buf, &replies); err != nil {
		return nil, fmt.Errorf("decode rating %s replies: %w", entity.ID, err)
	}
	return replies, nil
}

func encodeReplies(replies []Reply) (any, error) {
	buf, err := json.Marshal(replies)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}
