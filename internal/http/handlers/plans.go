package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/jobs"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/middleware"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/queue"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

type pickRequest struct {
	OrderDay    string                      `json:"orderDay,omitempty"`
	MemberOrder *plan.MemberOrder           `json:"memberOrder,omitempty"`
	OrderDays   map[string]plan.MemberOrder `json:"orderDays,omitempty"`
}

// PlanPick records one participant's food selection. The mutation runs
// through the job system so concurrent picks against the same plan
// serialize under the plan lock; the request waits for its job to land.
func (h *Handler) PlanPick(w http.ResponseWriter, r *http.Request) {
	orderID := readPathString(r, "orderId")
	planID := readPathString(r, "planId")

	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req pickRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.OrderDay == "" && len(req.OrderDays) == 0 {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "orderDay or orderDays required")
		return
	}
	if req.OrderDay != "" && req.MemberOrder == nil {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "memberOrder required with orderDay")
		return
	}

	payload := jobs.MemberOrderPayload{
		OrderID:       orderID,
		PlanID:        planID,
		CurrentUserID: authCtx.UserID,
		OrderDay:      req.OrderDay,
		OrderDays:     req.OrderDays,
	}
	if req.MemberOrder != nil {
		payload.MemberOrders = map[string]plan.MemberOrder{authCtx.UserID: *req.MemberOrder}
	}

	handle, err := h.Jobs.Enqueue(
		jobs.MemberOrderJobName,
		payload,
		jobs.DefaultJobOptions(payload, h.Config.JobAttempts, h.Config.JobBackoff),
	)
	if err != nil {
		h.Logger.Error("enqueue member order", zap.Error(err), zap.String("planId", planID))
		response.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "order processing is shutting down")
		return
	}

	if err := handle.Wait(r.Context()); err != nil {
		switch {
		case errors.Is(err, lock.ErrNotAcquired):
			response.Error(w, http.StatusConflict, "PLAN_BUSY", "plan is busy, try again")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			response.Error(w, http.StatusRequestTimeout, "TIMEOUT", "timed out waiting for pick to land")
		default:
			h.Logger.Error("member order failed", zap.Error(err),
				zap.String("planId", planID), zap.String("userId", authCtx.UserID))
			h.Events.Publish(r.Context(), queue.RoutingKeyMemberOrderFailed, map[string]any{
				"orderId": orderID,
				"planId":  planID,
				"userId":  authCtx.UserID,
				"error":   err.Error(),
			})
			response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to record pick")
		}
		return
	}

	detail, err := h.loadPlanDetail(r.Context(), planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}
	response.Success(w, map[string]any{
		"planId":      planID,
		"orderDetail": detail,
	})
}

// PlanDetail returns the current order detail for one plan.
func (h *Handler) PlanDetail(w http.ResponseWriter, r *http.Request) {
	planID := readPathString(r, "planId")
	detail, err := h.loadPlanDetail(r.Context(), planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}
	response.Success(w, map[string]any{
		"planId":      planID,
		"orderDetail": detail,
	})
}
