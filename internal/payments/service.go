// Package payments guards the payment ledger: every new record is validated
// against the outstanding balance recomputed from the quotation engine.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

var (
	ErrExceedsBalance = errors.New("payment amount exceeds outstanding balance")
	ErrInvalidRecord  = errors.New("invalid payment record")
)

type Service struct {
	Store  store.Store
	Ledger store.PaymentLedger

	Tiers                pricing.TierLookup
	DefaultVAT           float64
	ServiceFeePercentage float64
}

// Summary is the paid-versus-outstanding view for one order (or one
// partner's sub-order date).
type Summary struct {
	Total       int64 `json:"total"`
	PaidAmount  int64 `json:"paidAmount"`
	Outstanding int64 `json:"outstanding"`
}

// CheckPaymentRecordValid recomputes the billable total and rejects a record
// that would overpay the outstanding balance.
func (s *Service) CheckPaymentRecordValid(ctx context.Context, record store.PaymentRecord) error {
	if record.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecord)
	}
	switch record.PaymentType {
	case store.PaymentTypeClient, store.PaymentTypePartner:
	default:
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidRecord, record.PaymentType)
	}
	if record.PaymentType == store.PaymentTypePartner && record.SubOrderDate == "" {
		return fmt.Errorf("%w: partner payments require a sub-order date", ErrInvalidRecord)
	}

	summary, err := s.SummaryFor(ctx, store.PaymentFilter{
		PaymentType:  record.PaymentType,
		OrderID:      record.OrderID,
		SubOrderDate: record.SubOrderDate,
	})
	if err != nil {
		return err
	}
	if record.Amount > summary.Outstanding {
		return fmt.Errorf("%w: %d > %d", ErrExceedsBalance, record.Amount, summary.Outstanding)
	}
	return nil
}

func (s *Service) SummaryFor(ctx context.Context, filter store.PaymentFilter) (Summary, error) {
	var (
		total int64
		err   error
	)
	if filter.PaymentType == store.PaymentTypePartner {
		total, err = s.partnerTotal(ctx, filter.OrderID, filter.SubOrderDate)
	} else {
		// The client total is the reference, so the paid sum must not pick
		// up partner payout rows when the caller left the type blank.
		filter.PaymentType = store.PaymentTypeClient
		total, err = s.clientTotal(ctx, filter.OrderID)
	}
	if err != nil {
		return Summary{}, err
	}

	paid, err := s.Ledger.SumPaid(ctx, filter)
	if err != nil {
		return Summary{}, fmt.Errorf("sum payments: %w", err)
	}
	return Summary{Total: total, PaidAmount: paid, Outstanding: total - paid}, nil
}

// clientTotal prices the order's client side: the frozen quotation once one
// exists, otherwise the live order detail.
func (s *Service) clientTotal(ctx context.Context, orderID string) (int64, error) {
	order, entity, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	params := s.quotationParams(order)

	if frozen, ok := pricing.QuotationFromMetadata(entity.Metadata["quotation"]); ok {
		return pricing.CalculatePriceQuotationInfoFromQuotation(frozen, params, "").TotalWithVAT, nil
	}

	detail, err := s.loadDetail(ctx, order)
	if err != nil {
		return 0, err
	}
	return pricing.CalculatePriceQuotation(detail, params).TotalWithVAT, nil
}

// partnerTotal prices one partner day for payout.
func (s *Service) partnerTotal(ctx context.Context, orderID, subOrderDate string) (int64, error) {
	order, entity, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	vat := order.VATPercentage
	if vat == 0 {
		vat = s.DefaultVAT
	}
	params := pricing.PartnerQuotationParams{
		ServiceFeePercentage: s.ServiceFeePercentage,
		VATPercentage:        vat,
		Date:                 subOrderDate,
	}

	if frozen, ok := pricing.QuotationFromMetadata(entity.Metadata["quotation"]); ok {
		var total int64
		for _, snapshot := range frozen.Partner {
			if _, ok := snapshot[subOrderDate]; !ok {
				continue
			}
			total += pricing.CalculatePriceQuotationPartner(snapshot, params).TotalWithVAT
		}
		return total, nil
	}

	detail, err := s.loadDetail(ctx, order)
	if err != nil {
		return 0, err
	}
	snapshot := pricing.SnapshotFromDetail(detail)
	return pricing.CalculatePriceQuotationPartner(snapshot, params).TotalWithVAT, nil
}

func (s *Service) quotationParams(order plan.Order) pricing.QuotationParams {
	vat := order.VATPercentage
	if vat == 0 {
		vat = s.DefaultVAT
	}
	return pricing.QuotationParams{
		OrderState:           order.OrderState,
		OrderType:            order.OrderType,
		PackagePerMember:     order.PackagePerMember,
		VATPercentage:        vat,
		ServiceFeePercentage: s.ServiceFeePercentage,
		HasSpecificPCCFee:    order.HasSpecificPCCFee,
		SpecificPCCFee:       order.SpecificPCCFee,
		PCCFee:               s.Tiers,
		ShouldIncludePITOFee: true,
	}
}

func (s *Service) loadOrder(ctx context.Context, orderID string) (plan.Order, store.Entity, error) {
	entity, err := s.Store.Show(ctx, orderID)
	if err != nil {
		return plan.Order{}, store.Entity{}, fmt.Errorf("fetch order: %w", err)
	}
	order, err := plan.OrderFromEntity(entity)
	if err != nil {
		return plan.Order{}, store.Entity{}, err
	}
	return order, entity, nil
}

func (s *Service) loadDetail(ctx context.Context, order plan.Order) (plan.OrderDetail, error) {
	if len(order.Plans) == 0 {
		return plan.OrderDetail{}, nil
	}
	entity, err := s.Store.Show(ctx, order.Plans[0])
	if err != nil {
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	return plan.OrderDetailFromEntity(entity)
}
