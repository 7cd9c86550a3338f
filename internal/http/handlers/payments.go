package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/payments"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/queue"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

func paymentFilterFromQuery(r *http.Request) store.PaymentFilter {
	q := r.URL.Query()
	return store.PaymentFilter{
		PaymentType:  q.Get("paymentType"),
		OrderID:      q.Get("orderId"),
		SubOrderDate: q.Get("subOrderDate"),
	}
}

// PaymentList returns ledger records matching the query filter.
func (h *Handler) PaymentList(w http.ResponseWriter, r *http.Request) {
	records, err := h.Ledger.ListPayments(r.Context(), paymentFilterFromQuery(r))
	if err != nil {
		h.Logger.Error("list payments", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to list payments")
		return
	}
	response.Success(w, records)
}

type paymentCreateRequest struct {
	PaymentType  string `json:"paymentType"`
	OrderID      string `json:"orderId"`
	SubOrderDate string `json:"subOrderDate,omitempty"`
	Amount       int64  `json:"amount"`
	Note         string `json:"note,omitempty"`
}

// PaymentCreate appends a ledger record after revalidating the outstanding
// balance through the quotation engine.
func (h *Handler) PaymentCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	record := store.PaymentRecord{
		PaymentType:  req.PaymentType,
		OrderID:      req.OrderID,
		SubOrderDate: req.SubOrderDate,
		Amount:       req.Amount,
		Note:         req.Note,
	}

	if err := h.Payments.CheckPaymentRecordValid(ctx, record); err != nil {
		switch {
		case errors.Is(err, payments.ErrExceedsBalance):
			response.Error(w, http.StatusBadRequest, "EXCEEDS_BALANCE", "payment exceeds outstanding balance")
		case errors.Is(err, payments.ErrInvalidRecord):
			response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		default:
			h.Logger.Error("payment validity check", zap.Error(err), zap.String("orderId", req.OrderID))
			response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to validate payment")
		}
		return
	}

	created, err := h.Ledger.CreatePayment(ctx, record)
	if err != nil {
		h.Logger.Error("create payment", zap.Error(err), zap.String("orderId", req.OrderID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to create payment")
		return
	}

	h.Events.Publish(ctx, queue.RoutingKeyPaymentCreated, map[string]any{
		"paymentId":   created.ID,
		"orderId":     created.OrderID,
		"paymentType": created.PaymentType,
		"amount":      created.Amount,
	})

	response.Created(w, created)
}

// PaymentDelete removes a mistaken ledger record. The ledger is append-only
// otherwise; corrections happen by delete and re-create.
func (h *Handler) PaymentDelete(w http.ResponseWriter, r *http.Request) {
	id := readPathString(r, "paymentId")
	if err := h.Ledger.DeletePayment(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "payment not found")
			return
		}
		h.Logger.Error("delete payment", zap.Error(err), zap.String("paymentId", id))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to delete payment")
		return
	}
	response.Success(w, map[string]any{"deleted": id})
}

// PaymentSummary reports paid versus outstanding for an order, or for one
// partner sub-order date.
func (h *Handler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	filter := paymentFilterFromQuery(r)
	if filter.OrderID == "" {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required")
		return
	}

	summary, err := h.Payments.SummaryFor(r.Context(), filter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "order not found")
			return
		}
		h.Logger.Error("payment summary", zap.Error(err), zap.String("orderId", filter.OrderID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to compute summary")
		return
	}
	response.Success(w, summary)
}
