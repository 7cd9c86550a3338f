package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

func tierTable(memberAmount int) int64 {
	switch {
	case memberAmount <= 10:
		return 60000
	case memberAmount <= 20:
		return 100000
	default:
		return 200000
	}
}

func TestCalculatePriceQuotationGroupScenario(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
			"u2": {FoodID: "f1", Status: plan.MemberStatusJoined},
			"u3": {FoodID: "f1", Status: plan.MemberStatusNotJoined},
		}),
	}

	q := CalculatePriceQuotation(detail, QuotationParams{
		OrderState:           plan.OrderStatePicking,
		OrderType:            plan.OrderTypeGroup,
		PackagePerMember:     60000,
		VATPercentage:        0.08,
		ServiceFeePercentage: 0,
		PCCFee:               tierTable,
		ShouldIncludePITOFee: true,
	})

	require.EqualValues(t, 2, q.TotalDishes)
	require.EqualValues(t, 100000, q.TotalPrice)
	assert.EqualValues(t, 0, q.ServiceFee, "no date filter, no per-day service fee")
	assert.EqualValues(t, 60000, q.PITOFee, "tier fee for 2 members")
	assert.EqualValues(t, 160000, q.TotalWithoutVAT)
	assert.EqualValues(t, 12800, q.VATFee)
	assert.EqualValues(t, 172800, q.TotalWithVAT)
	assert.False(t, q.IsOverflowPackage)
	assert.EqualValues(t, 0, q.Overflow)
	assert.EqualValues(t, 1, q.PITOPoints)
}

func TestCalculatePriceQuotationOverflowBoundary(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
			"u2": {FoodID: "f1", Status: plan.MemberStatusJoined},
		}),
	}

	// budget == totalPrice exactly: the comparison is strict, no overflow.
	exact := CalculatePriceQuotation(detail, QuotationParams{
		PackagePerMember: 50000,
		VATPercentage:    0.08,
	})
	assert.False(t, exact.IsOverflowPackage)
	assert.EqualValues(t, 0, exact.Overflow)

	over := CalculatePriceQuotation(detail, QuotationParams{
		PackagePerMember: 49999,
		VATPercentage:    0.08,
	})
	require.True(t, over.IsOverflowPackage)
	assert.EqualValues(t, over.TotalWithVAT-2*49999, over.Overflow)
}

func TestCalculatePriceQuotationServiceFeePerDayOnly(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
		}),
	}

	q := CalculatePriceQuotation(detail, QuotationParams{
		Date:                 "1700000000000",
		ServiceFeePercentage: 0.05,
		VATPercentage:        0,
	})
	assert.EqualValues(t, 2500, q.ServiceFee)
	assert.EqualValues(t, 50000-2500, q.TotalWithoutVAT)
}

func TestCalculatePriceQuotationInProgressSkipsMissingTransaction(t *testing.T) {
	withTx := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
	})
	withTx.TransactionID = "tx-1"
	withoutTx := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f2", Status: plan.MemberStatusJoined},
	})

	detail := plan.OrderDetail{
		"1700000000000": withTx,
		"1700086400000": withoutTx,
	}

	picking := CalculatePriceQuotation(detail, QuotationParams{OrderState: plan.OrderStatePicking})
	assert.EqualValues(t, 95000, picking.TotalPrice)

	inProgress := CalculatePriceQuotation(detail, QuotationParams{OrderState: plan.OrderStateInProgress})
	assert.EqualValues(t, 50000, inProgress.TotalPrice, "uninitiated day must not be billed")
}

func TestCalculatePriceQuotationSpecificPCCFeeOverride(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
		}),
	}

	q := CalculatePriceQuotation(detail, QuotationParams{
		HasSpecificPCCFee:    true,
		SpecificPCCFee:       12345,
		PCCFee:               tierTable,
		ShouldIncludePITOFee: true,
	})
	assert.EqualValues(t, 12345, q.PITOFee)
}

func TestQuotationMonotonicity(t *testing.T) {
	base := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
		}),
	}
	bigger := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
			"u2": {FoodID: "f2", Status: plan.MemberStatusJoined},
		}),
	}

	params := QuotationParams{
		VATPercentage:        0.08,
		PCCFee:               tierTable,
		ShouldIncludePITOFee: true,
	}

	lo := CalculatePriceQuotation(base, params)
	hi := CalculatePriceQuotation(bigger, params)

	assert.GreaterOrEqual(t, hi.TotalPrice, lo.TotalPrice)
	assert.GreaterOrEqual(t, hi.VATFee, lo.VATFee)
	assert.GreaterOrEqual(t, hi.TotalWithVAT, lo.TotalWithVAT)
}

func TestCalculatePriceQuotationPartner(t *testing.T) {
	snapshot := Snapshot{
		"1700000000000": {
			{FoodPrice: 50000, Frequency: 2},
			{FoodPrice: 45000, Frequency: 1},
		},
	}

	payout := CalculatePriceQuotationPartner(snapshot, PartnerQuotationParams{
		ServiceFeePercentage: 0.1,
		VATPercentage:        0.08,
	})

	require.EqualValues(t, 3, payout.TotalDishes)
	require.EqualValues(t, 145000, payout.TotalPrice)
	assert.EqualValues(t, 14500, payout.ServiceFeePrice)
	assert.EqualValues(t, 130500, payout.TotalWithoutVAT)
	assert.EqualValues(t, 10440, payout.VATFee)
	assert.EqualValues(t, 140940, payout.TotalWithVAT)
}

func TestCalculateFromQuotationPartnerScoped(t *testing.T) {
	q := Quotation{
		Client: Snapshot{
			"1700000000000": {{FoodPrice: 50000, Frequency: 4}},
		},
		Partner: map[string]Snapshot{
			"partner-1": {
				"1700000000000": {{FoodPrice: 50000, Frequency: 2}},
			},
		},
	}

	params := QuotationParams{
		VATPercentage:        0.08,
		PCCFee:               tierTable,
		ShouldIncludePITOFee: true,
		Date:                 "1700000000000",
	}

	partner := CalculatePriceQuotationInfoFromQuotation(q, params, "partner-1")
	assert.EqualValues(t, 100000, partner.TotalPrice)
	assert.EqualValues(t, 0, partner.PITOFee, "platform fee is charged client-side only")

	client := CalculatePriceQuotationInfoFromQuotation(q, QuotationParams{
		VATPercentage:        0.08,
		PCCFee:               tierTable,
		ShouldIncludePITOFee: true,
	}, "")
	assert.EqualValues(t, 200000, client.TotalPrice)
	assert.EqualValues(t, 60000, client.PITOFee)
}

func TestSnapshotFromDetail(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": groupDay(map[string]plan.MemberOrder{
			"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
			"u2": {FoodID: "f1", Status: plan.MemberStatusJoined},
		}),
	}
	canceled := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
	})
	canceled.Status = plan.SubOrderStatusCanceled
	detail["1700086400000"] = canceled

	snapshot := SnapshotFromDetail(detail)
	require.Len(t, snapshot, 1)
	items := snapshot["1700000000000"]
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].Frequency)
	assert.EqualValues(t, 50000, items[0].FoodPrice)
}
