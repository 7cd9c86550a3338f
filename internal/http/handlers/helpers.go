package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", what+" not found")
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to load "+what)
}

func (h *Handler) loadOrder(ctx context.Context, orderID string) (plan.Order, store.Entity, error) {
	entity, err := h.Store.Show(ctx, orderID)
	if err != nil {
		return plan.Order{}, store.Entity{}, err
	}
	order, err := plan.OrderFromEntity(entity)
	if err != nil {
		return plan.Order{}, store.Entity{}, err
	}
	return order, entity, nil
}

func (h *Handler) loadPlanDetail(ctx context.Context, planID string) (plan.OrderDetail, error) {
	entity, err := h.Store.Show(ctx, planID)
	if err != nil {
		return nil, err
	}
	return plan.OrderDetailFromEntity(entity)
}

// planIDFor resolves the plan entity backing an order when the route does
// not carry one. Orders out of draft always have at least one plan.
func planIDFor(order plan.Order) (string, bool) {
	if len(order.Plans) == 0 {
		return "", false
	}
	return order.Plans[0], true
}

func sortedDateKeys(detail plan.OrderDetail) []string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *Handler) quotationParams(order plan.Order, date string, includePITOFee bool) pricing.QuotationParams {
	vat := order.VATPercentage
	if vat == 0 {
		vat = h.Config.VATPercentage
	}
	serviceFee := order.ServiceFees
	if serviceFee == 0 {
		serviceFee = h.Config.ServiceFeePercentage
	}
	return pricing.QuotationParams{
		OrderState:           order.OrderState,
		OrderType:            order.OrderType,
		PackagePerMember:     order.PackagePerMember,
		VATPercentage:        vat,
		ServiceFeePercentage: serviceFee,
		HasSpecificPCCFee:    order.HasSpecificPCCFee,
		SpecificPCCFee:       order.SpecificPCCFee,
		PCCFee:               h.Config.PCCFee,
		Date:                 date,
		ShouldIncludePITOFee: includePITOFee,
	}
}
