package pricing

import (
	"math"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

// TierLookup resolves the platform (PCC) fee for a per-day member headcount.
// The tier table is business configuration, injected from config.
type TierLookup func(memberAmount int) int64

// QuotationParams carries the order metadata the quotation math depends on.
type QuotationParams struct {
	OrderState           plan.OrderState
	OrderType            plan.OrderType
	PackagePerMember     int64
	VATPercentage        float64
	ServiceFeePercentage float64

	HasSpecificPCCFee bool
	SpecificPCCFee    int64
	PCCFee            TierLookup

	// Date scopes the quotation to a single day. Service fee only applies
	// in that per-day context.
	Date string
	// ShouldIncludePITOFee disables the platform fee entirely when false.
	ShouldIncludePITOFee bool
}

// PriceQuotation is the financial summary surfaced to bookers and admins.
// All amounts are VND, the smallest denomination; rounding happens only at
// the VAT/service-fee boundary.
type PriceQuotation struct {
	TotalDishes       int64 `json:"totalDishes"`
	TotalPrice        int64 `json:"totalPrice"`
	ServiceFee        int64 `json:"serviceFee"`
	PITOFee           int64 `json:"PITOFee"`
	TransportFee      int64 `json:"transportFee"`
	Promotion         int64 `json:"promotion"`
	TotalWithoutVAT   int64 `json:"totalWithoutVAT"`
	VATFee            int64 `json:"VATFee"`
	TotalWithVAT      int64 `json:"totalWithVAT"`
	IsOverflowPackage bool  `json:"isOverflowPackage"`
	Overflow          int64 `json:"overflow"`
	PITOPoints        int64 `json:"PITOPoints"`
}

// CalculatePriceQuotation computes the client-facing quotation over live
// order detail.
func CalculatePriceQuotation(detail plan.OrderDetail, params QuotationParams) PriceQuotation {
	opts := AggregateOptions{
		Date: params.Date,
		// Once the order runs, days whose booking transaction was never
		// initiated must not be billed.
		RequireTransaction: params.OrderState == plan.OrderStateInProgress,
	}

	totals := Aggregate(detail, opts)

	var pitoFee int64
	if params.ShouldIncludePITOFee {
		for dateKey, sub := range detail {
			if !includeSubOrder(dateKey, sub, opts) {
				continue
			}
			pitoFee += params.dayFee(headcount(sub))
		}
	}

	return buildQuotation(totals, pitoFee, params)
}

func (p QuotationParams) dayFee(memberAmount int) int64 {
	if memberAmount <= 0 {
		return 0
	}
	if p.HasSpecificPCCFee {
		return p.SpecificPCCFee
	}
	if p.PCCFee == nil {
		return 0
	}
	return p.PCCFee(memberAmount)
}

func buildQuotation(totals Totals, pitoFee int64, params QuotationParams) PriceQuotation {
	q := PriceQuotation{
		TotalDishes: totals.TotalDishes,
		TotalPrice:  totals.TotalPrice,
		PITOFee:     pitoFee,
	}

	// Service fee only exists in a per-day context.
	if params.Date != "" {
		q.ServiceFee = roundHalfUp(float64(totals.TotalPrice) * params.ServiceFeePercentage)
	}

	q.TotalWithoutVAT = totals.TotalPrice - q.ServiceFee + q.TransportFee + q.PITOFee - q.Promotion
	q.VATFee = roundHalfUp(float64(q.TotalWithoutVAT) * params.VATPercentage)
	q.TotalWithVAT = q.TotalWithoutVAT + q.VATFee

	budget := totals.TotalDishes * params.PackagePerMember
	if budget < totals.TotalPrice {
		q.IsOverflowPackage = true
		q.Overflow = q.TotalWithVAT - budget
	}

	q.PITOPoints = totals.TotalPrice / pointUnit
	return q
}

// pointUnit is the VND amount that accrues one loyalty point.
const pointUnit = 100000

// roundHalfUp rounds to the nearest integer with .5 going up, matching the
// billing rule for VAT and service-fee amounts.
func roundHalfUp(value float64) int64 {
	return int64(math.Floor(value + 0.5))
}
