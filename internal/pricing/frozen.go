package pricing

import (
	"encoding/json"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

// QuotationItem is one food line inside a frozen quotation snapshot.
type QuotationItem struct {
	FoodID    string `json:"foodId,omitempty"`
	FoodName  string `json:"foodName,omitempty"`
	FoodPrice int64  `json:"foodPrice"`
	Frequency int64  `json:"frequency"`
}

// Snapshot maps date keys to the food lines frozen for those days.
type Snapshot map[string][]QuotationItem

// Quotation is the frozen pricing taken when an order leaves picking: the
// client-side view plus one per-partner view used for payout.
type Quotation struct {
	Client  Snapshot            `json:"client"`
	Partner map[string]Snapshot `json:"partner"`
}

// QuotationFromMetadata decodes a frozen quotation out of an entity's
// metadata "quotation" value. The second return is false when no snapshot
// was frozen yet.
func QuotationFromMetadata(raw any) (Quotation, bool) {
	if raw == nil {
		return Quotation{}, false
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return Quotation{}, false
	}
	var q Quotation
	if err := json.Unmarshal(buf, &q); err != nil {
		return Quotation{}, false
	}
	if len(q.Client) == 0 && len(q.Partner) == 0 {
		return Quotation{}, false
	}
	return q, true
}

// QuotationMetadata renders a frozen quotation as a metadata partial.
func QuotationMetadata(q Quotation) map[string]any {
	buf, err := json.Marshal(q)
	if err != nil {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return map[string]any{}
	}
	return map[string]any{"quotation": out}
}

// SnapshotFromDetail freezes live order detail into quotation items.
func SnapshotFromDetail(detail plan.OrderDetail) Snapshot {
	snapshot := Snapshot{}
	for dateKey, sub := range detail {
		if sub.IsCanceled() {
			continue
		}
		var items []QuotationItem
		if sub.IsNormal() {
			for _, item := range sub.LineItems {
				quantity := item.Quantity
				if quantity == 0 {
					quantity = 1
				}
				unitPrice := item.UnitPrice
				if unitPrice == 0 && quantity > 0 {
					unitPrice = item.Price / quantity
				}
				items = append(items, QuotationItem{
					FoodID:    item.ID,
					FoodName:  item.Name,
					FoodPrice: unitPrice,
					Frequency: quantity,
				})
			}
		} else {
			for _, line := range FoodBreakdown(sub) {
				items = append(items, QuotationItem{
					FoodID:    line.FoodID,
					FoodName:  line.FoodName,
					FoodPrice: line.FoodPrice,
					Frequency: line.Frequency,
				})
			}
		}
		if len(items) > 0 {
			snapshot[dateKey] = items
		}
	}
	return snapshot
}

// PartnerSnapshotsFromDetail splits the frozen detail by restaurant so each
// partner sees only the dates they serve.
func PartnerSnapshotsFromDetail(detail plan.OrderDetail) map[string]Snapshot {
	full := SnapshotFromDetail(detail)
	out := map[string]Snapshot{}
	for dateKey, items := range full {
		partnerID := detail[dateKey].Restaurant.ID
		if partnerID == "" {
			continue
		}
		snap, ok := out[partnerID]
		if !ok {
			snap = Snapshot{}
			out[partnerID] = snap
		}
		snap[dateKey] = items
	}
	return out
}

func snapshotTotals(snapshot Snapshot, date string) Totals {
	var totals Totals
	for dateKey, items := range snapshot {
		if date != "" && date != dateKey {
			continue
		}
		for _, item := range items {
			totals.TotalDishes += item.Frequency
			totals.TotalPrice += item.FoodPrice * item.Frequency
		}
	}
	return totals
}

type PartnerQuotationParams struct {
	ServiceFeePercentage float64
	VATPercentage        float64
	Promotion            int64
	Date                 string
}

// PartnerPayout is the restaurant-facing side of a frozen quotation: the
// platform's service fee comes out of the partner's total.
type PartnerPayout struct {
	TotalDishes     int64 `json:"totalDishes"`
	TotalPrice      int64 `json:"totalPrice"`
	ServiceFeePrice int64 `json:"serviceFeePrice"`
	Promotion       int64 `json:"promotion"`
	TotalWithoutVAT int64 `json:"totalWithoutVAT"`
	VATFee          int64 `json:"VATFee"`
	TotalWithVAT    int64 `json:"totalWithVAT"`
}

// CalculatePriceQuotationPartner prices a partner's frozen snapshot for
// payout.
func CalculatePriceQuotationPartner(snapshot Snapshot, params PartnerQuotationParams) PartnerPayout {
	totals := snapshotTotals(snapshot, params.Date)

	payout := PartnerPayout{
		TotalDishes: totals.TotalDishes,
		TotalPrice:  totals.TotalPrice,
		Promotion:   params.Promotion,
	}
	payout.ServiceFeePrice = roundHalfUp(float64(totals.TotalPrice) * params.ServiceFeePercentage)
	payout.TotalWithoutVAT = totals.TotalPrice - payout.Promotion - payout.ServiceFeePrice
	payout.VATFee = roundHalfUp(float64(payout.TotalWithoutVAT) * params.VATPercentage)
	payout.TotalWithVAT = payout.TotalWithoutVAT + payout.VATFee
	return payout
}

// CalculatePriceQuotationInfoFromQuotation reconciles a frozen quotation.
// With a partnerID and date it prices that partner's day (the platform fee
// is charged client-side only, so PITOFee stays 0); otherwise it prices the
// full client view, with the platform fee accumulated per day as for live
// detail.
func CalculatePriceQuotationInfoFromQuotation(q Quotation, params QuotationParams, partnerID string) PriceQuotation {
	if partnerID != "" && params.Date != "" {
		snapshot := q.Partner[partnerID]
		totals := snapshotTotals(snapshot, params.Date)
		scoped := params
		scoped.ShouldIncludePITOFee = false
		return buildQuotation(totals, 0, scoped)
	}

	totals := snapshotTotals(q.Client, params.Date)

	var pitoFee int64
	if params.ShouldIncludePITOFee {
		for dateKey, items := range q.Client {
			if params.Date != "" && params.Date != dateKey {
				continue
			}
			var members int64
			for _, item := range items {
				members += item.Frequency
			}
			pitoFee += params.dayFee(int(members))
		}
	}

	return buildQuotation(totals, pitoFee, params)
}
