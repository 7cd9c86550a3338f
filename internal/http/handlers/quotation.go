package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/export"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

// QuotationGet prices the client-facing view of an order. Orders still in
// picking price off live detail; once started, the frozen snapshot wins.
func (h *Handler) QuotationGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := readPathString(r, "orderId")
	date := r.URL.Query().Get("date")

	includePITOFee := true
	if raw := r.URL.Query().Get("includePITOFee"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "includePITOFee must be a boolean")
			return
		}
		includePITOFee = parsed
	}

	order, entity, err := h.loadOrder(ctx, orderID)
	if err != nil {
		h.writeStoreError(w, err, "order")
		return
	}
	params := h.quotationParams(order, date, includePITOFee)

	if frozen, ok := pricing.QuotationFromMetadata(entity.Metadata["quotation"]); ok {
		response.Success(w, pricing.CalculatePriceQuotationInfoFromQuotation(frozen, params, ""))
		return
	}

	planID, ok := planIDFor(order)
	if !ok {
		response.Error(w, http.StatusConflict, "NO_PLAN", "order has no plan yet")
		return
	}
	detail, err := h.loadPlanDetail(ctx, planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}
	response.Success(w, pricing.CalculatePriceQuotation(detail, params))
}

// QuotationPartnerGet prices one partner's payout view.
func (h *Handler) QuotationPartnerGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := readPathString(r, "orderId")
	partnerID := r.URL.Query().Get("partnerId")
	date := r.URL.Query().Get("date")
	if partnerID == "" {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "partnerId is required")
		return
	}

	order, entity, err := h.loadOrder(ctx, orderID)
	if err != nil {
		h.writeStoreError(w, err, "order")
		return
	}

	vat := order.VATPercentage
	if vat == 0 {
		vat = h.Config.VATPercentage
	}
	params := pricing.PartnerQuotationParams{
		ServiceFeePercentage: h.Config.ServiceFeePercentage,
		VATPercentage:        vat,
		Date:                 date,
	}

	snapshot, ok := partnerSnapshot(entity.Metadata["quotation"], partnerID)
	if !ok {
		planID, okPlan := planIDFor(order)
		if !okPlan {
			response.Error(w, http.StatusConflict, "NO_PLAN", "order has no plan yet")
			return
		}
		detail, err := h.loadPlanDetail(ctx, planID)
		if err != nil {
			h.writeStoreError(w, err, "plan")
			return
		}
		snapshot = pricing.PartnerSnapshotsFromDetail(detail)[partnerID]
	}

	response.Success(w, pricing.CalculatePriceQuotationPartner(snapshot, params))
}

func partnerSnapshot(raw any, partnerID string) (pricing.Snapshot, bool) {
	frozen, ok := pricing.QuotationFromMetadata(raw)
	if !ok {
		return nil, false
	}
	snapshot, ok := frozen.Partner[partnerID]
	return snapshot, ok
}

// QuotationExport renders the quotation as a PDF and uploads it to the
// object store, returning the public URL.
func (h *Handler) QuotationExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := readPathString(r, "orderId")

	order, entity, err := h.loadOrder(ctx, orderID)
	if err != nil {
		h.writeStoreError(w, err, "order")
		return
	}
	params := h.quotationParams(order, "", true)

	planID, ok := planIDFor(order)
	if !ok {
		response.Error(w, http.StatusConflict, "NO_PLAN", "order has no plan yet")
		return
	}
	detail, err := h.loadPlanDetail(ctx, planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}

	var quotation pricing.PriceQuotation
	if frozen, ok := pricing.QuotationFromMetadata(entity.Metadata["quotation"]); ok {
		quotation = pricing.CalculatePriceQuotationInfoFromQuotation(frozen, params, "")
	} else {
		quotation = pricing.CalculatePriceQuotation(detail, params)
	}

	url, err := h.Exporter.ExportQuotation(ctx, export.QuotationData{
		Order:       order,
		CompanyName: h.companyName(ctx, order.CompanyID),
		Quotation:   quotation,
		Detail:      detail,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		h.Logger.Error("quotation export failed", zap.Error(err), zap.String("orderId", orderID))
		response.Error(w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to export quotation")
		return
	}

	response.Success(w, map[string]any{"url": url})
}

func (h *Handler) companyName(ctx context.Context, companyID string) string {
	if companyID == "" {
		return ""
	}
	entity, err := h.Store.Show(ctx, companyID)
	if err != nil {
		return ""
	}
	name, _ := entity.Metadata["companyName"].(string)
	return name
}
