package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/booking"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/queue"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

const (
	transitionStartOrder  = "transition/initiate-transaction"
	transitionFinishOrder = "transition/complete-delivery"
)

// OrderStart moves an order from picking to inProgress: one booking
// transaction per live sub-order date (the last tagged so the engine can
// close out the plan), pricing frozen into a quotation snapshot. Booking
// failures propagate; transactions already initiated for earlier dates are
// not compensated.
func (h *Handler) OrderStart(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, plan.OrderStateInProgress, transitionStartOrder, queue.RoutingKeyOrderStarted)
}

// OrderFinish moves an inProgress order to completed, driving the closing
// transition on every sub-order date that has a live transaction.
func (h *Handler) OrderFinish(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, plan.OrderStateCompleted, transitionFinishOrder, queue.RoutingKeyOrderFinished)
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, target plan.OrderState, transition string, routingKey string) {
	ctx := r.Context()
	orderID := readPathString(r, "orderId")
	planID := readPathString(r, "planId")

	order, _, err := h.loadOrder(ctx, orderID)
	if err != nil {
		h.writeStoreError(w, err, "order")
		return
	}
	if !plan.CanTransition(order.OrderState, target) {
		response.Error(w, http.StatusConflict, "INVALID_STATE",
			"order cannot move from "+string(order.OrderState)+" to "+string(target))
		return
	}

	// The detail is read, stamped with transaction ids and written back
	// wholesale, so the window holds the plan lock like the merge job does;
	// otherwise a pick landing mid-transition would be overwritten.
	planLock := lock.New(h.Locks, "plan", planID, h.LockOpts)
	if err := planLock.Acquire(ctx); err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			response.Error(w, http.StatusConflict, "PLAN_BUSY", "plan is busy, try again")
			return
		}
		h.Logger.Error("plan lock acquire failed", zap.Error(err), zap.String("planId", planID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "could not lock plan")
		return
	}
	defer func() {
		_, _ = planLock.Release(context.WithoutCancel(ctx))
	}()

	detail, err := h.loadPlanDetail(ctx, planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}

	var liveDates []string
	for _, dateKey := range sortedDateKeys(detail) {
		sub := detail[dateKey]
		if sub.IsCanceled() {
			continue
		}
		if target == plan.OrderStateCompleted && sub.TransactionID == "" {
			continue
		}
		liveDates = append(liveDates, dateKey)
	}

	for i, dateKey := range liveDates {
		sub := detail[dateKey]
		resp, err := h.Booking.Initiate(ctx, booking.TransactionRequest{
			OrderID:        orderID,
			PlanID:         planID,
			SubOrderDate:   dateKey,
			RestaurantID:   sub.Restaurant.ID,
			Transition:     transition,
			IsLastTxOfPlan: i == len(liveDates)-1,
		})
		if err != nil {
			h.Logger.Error("booking transaction failed", zap.Error(err),
				zap.String("orderId", orderID), zap.String("subOrderDate", dateKey))
			response.Error(w, http.StatusBadGateway, "BOOKING_FAILED",
				"booking transaction failed for "+dateKey)
			return
		}
		if resp.TransactionID != "" {
			sub.TransactionID = resp.TransactionID
		}
		if resp.LastTransition != "" {
			sub.LastTransition = resp.LastTransition
		}
		detail[dateKey] = sub
	}

	// The booking round-trips may have eaten most of the TTL; renew before
	// the persist and bail out if the lock is already gone.
	extended, err := planLock.Extend(ctx, 0)
	if err != nil {
		h.Logger.Error("plan lock extend failed", zap.Error(err), zap.String("planId", planID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "could not renew plan lock")
		return
	}
	if !extended {
		response.Error(w, http.StatusConflict, "PLAN_BUSY", "plan is busy, try again")
		return
	}

	if _, err := h.Store.UpdateMetadata(ctx, planID, plan.OrderDetailMetadata(detail)); err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}

	partial := map[string]any{"orderState": string(target)}
	if target == plan.OrderStateInProgress {
		// Pricing locks in here: billing and payout read the snapshot from
		// now on, not the live detail.
		frozen := pricing.Quotation{
			Client:  pricing.SnapshotFromDetail(detail),
			Partner: pricing.PartnerSnapshotsFromDetail(detail),
		}
		for k, v := range pricing.QuotationMetadata(frozen) {
			partial[k] = v
		}
	}
	if _, err := h.Store.UpdateMetadata(ctx, orderID, partial); err != nil {
		h.writeStoreError(w, err, "order")
		return
	}

	h.Events.Publish(ctx, routingKey, map[string]any{
		"orderId":    orderID,
		"planId":     planID,
		"orderState": string(target),
		"dates":      liveDates,
	})

	response.Success(w, map[string]any{
		"orderId":    orderID,
		"orderState": string(target),
		"dates":      liveDates,
	})
}
