package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

const MemberOrderJobName = "processMemberOrder"

// MemberOrderJobID is the dedup key: one pending merge per
// (order, plan, participant) triple.
func MemberOrderJobID(orderID, planID, userID string) string {
	return orderID + "-" + planID + "-" + userID
}

// MemberOrderPayload carries one participant's food-selection delta: either
// a single day (OrderDay + MemberOrders holding only the participant's
// entry) or a multi-day map.
type MemberOrderPayload struct {
	OrderID       string                      `json:"orderId"`
	PlanID        string                      `json:"planId"`
	CurrentUserID string                      `json:"currentUserId"`
	OrderDay      string                      `json:"orderDay,omitempty"`
	MemberOrders  map[string]plan.MemberOrder `json:"memberOrders,omitempty"`
	OrderDays     map[string]plan.MemberOrder `json:"orderDays,omitempty"`
}

func (p MemberOrderPayload) deltas() []plan.MemberOrderDelta {
	var deltas []plan.MemberOrderDelta
	if p.OrderDay != "" {
		if mo, ok := p.MemberOrders[p.CurrentUserID]; ok {
			deltas = append(deltas, plan.MemberOrderDelta{DateKey: p.OrderDay, MemberOrder: mo})
		}
	}
	for dateKey, mo := range p.OrderDays {
		deltas = append(deltas, plan.MemberOrderDelta{DateKey: dateKey, MemberOrder: mo})
	}
	return deltas
}

// EventSink receives fire-and-forget notifications after a merge lands.
type EventSink interface {
	PlanUpdated(ctx context.Context, orderID, planID string, detail plan.OrderDetail)
}

// MemberOrderProcessor serializes concurrent participant picks onto the
// shared plan document: lock, re-read, merge one member key, persist,
// release.
type MemberOrderProcessor struct {
	Store    store.Store
	Locks    lock.Store
	LockOpts lock.Options
	Events   EventSink
	Logger   *zap.Logger
}

// Register wires the processor into a job system.
func (p *MemberOrderProcessor) Register(system *System) {
	system.Register(MemberOrderJobName, func(ctx context.Context, payload any) error {
		typed, ok := payload.(MemberOrderPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", payload)
		}
		return p.Process(ctx, typed)
	})
}

func (p *MemberOrderProcessor) Process(ctx context.Context, payload MemberOrderPayload) error {
	deltas := payload.deltas()
	if len(deltas) == 0 {
		return nil
	}

	planLock := lock.New(p.Locks, "plan", payload.PlanID, p.LockOpts)
	if err := planLock.Acquire(ctx); err != nil {
		return err
	}
	// The release must run even when the merge fails; a false return means
	// the TTL already expired, which is fine.
	defer func() {
		if _, err := planLock.Release(context.WithoutCancel(ctx)); err != nil {
			p.Logger.Warn("plan lock release failed",
				zap.String("planId", payload.PlanID), zap.Error(err))
		}
	}()

	// Both reads happen after the lock so the merge sees the latest
	// committed state, never a snapshot a concurrent job is overwriting.
	orderEntity, err := p.Store.Show(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}
	order, err := plan.OrderFromEntity(orderEntity)
	if err != nil {
		return err
	}

	planEntity, err := p.Store.Show(ctx, payload.PlanID)
	if err != nil {
		return fmt.Errorf("fetch plan: %w", err)
	}
	detail, err := plan.OrderDetailFromEntity(planEntity)
	if err != nil {
		return err
	}

	detail = plan.ApplyMemberOrders(detail, payload.CurrentUserID, deltas)

	// Renew before the persist so a slow store write cannot outlive the TTL.
	// A false return means the TTL already lapsed and another holder may have
	// the plan; persisting now would overwrite its merge with this stale read.
	extended, err := planLock.Extend(ctx, 0)
	if err != nil {
		return err
	}
	if !extended {
		return fmt.Errorf("%w: plan %s lock expired before persist", lock.ErrNotAcquired, payload.PlanID)
	}
	if _, err := p.Store.UpdateMetadata(ctx, payload.PlanID, plan.OrderDetailMetadata(detail)); err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}

	if !order.Tracked(payload.CurrentUserID) {
		if err := p.trackAnonymous(ctx, payload.OrderID, payload.CurrentUserID); err != nil {
			return err
		}
	}

	if p.Events != nil {
		p.Events.PlanUpdated(ctx, payload.OrderID, payload.PlanID, detail)
	}
	return nil
}

// trackAnonymous appends a first-time contributor to the order's anonymous
// list under the order's own lock, so two simultaneous newcomers cannot
// drop each other's append.
func (p *MemberOrderProcessor) trackAnonymous(ctx context.Context, orderID, userID string) error {
	orderLock := lock.New(p.Locks, "order", orderID, p.LockOpts)
	if err := orderLock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		_, _ = orderLock.Release(context.WithoutCancel(ctx))
	}()

	entity, err := p.Store.Show(ctx, orderID)
	if err != nil {
		return fmt.Errorf("refetch order: %w", err)
	}
	order, err := plan.OrderFromEntity(entity)
	if err != nil {
		return err
	}
	if order.Tracked(userID) {
		return nil
	}

	anonymous := append(order.Anonymous, userID)
	if _, err := p.Store.UpdateMetadata(ctx, orderID, map[string]any{"anonymous": anonymous}); err != nil {
		return fmt.Errorf("track anonymous participant: %w", err)
	}
	return nil
}

// DefaultJobOptions builds the queue options for a merge enqueue.
func DefaultJobOptions(payload MemberOrderPayload, attempts int, backoff time.Duration) Options {
	return Options{
		JobID:    MemberOrderJobID(payload.OrderID, payload.PlanID, payload.CurrentUserID),
		Attempts: attempts,
		Backoff:  backoff,
	}
}
