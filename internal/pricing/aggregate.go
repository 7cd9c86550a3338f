// Package pricing holds the pure order-detail aggregation and price
// quotation engines. Nothing here performs I/O or mutates its inputs, so
// every function is safe to call concurrently.
package pricing

import (
	"sort"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

type Totals struct {
	TotalDishes int64 `json:"totalDishes"`
	TotalPrice  int64 `json:"totalPrice"`
}

type AggregateOptions struct {
	// Date restricts aggregation to a single date key when non-empty.
	Date string
	// RequireTransaction drops dates with no booking transaction yet. Set
	// for in-progress orders: a day whose transaction was never initiated
	// must not be billed.
	RequireTransaction bool
}

func includeSubOrder(dateKey string, sub plan.SubOrder, opts AggregateOptions) bool {
	if sub.IsCanceled() {
		return false
	}
	if opts.Date != "" && opts.Date != dateKey {
		return false
	}
	if opts.RequireTransaction && sub.TransactionID == "" {
		return false
	}
	return true
}

// Aggregate folds a plan's order detail into total dish count and price.
// Both sub-order shapes contribute through the same capability, so group and
// normal orders share one accumulation loop.
func Aggregate(detail plan.OrderDetail, opts AggregateOptions) Totals {
	var totals Totals
	for dateKey, sub := range detail {
		if !includeSubOrder(dateKey, sub, opts) {
			continue
		}
		totals.TotalDishes += sub.DishCount()
		totals.TotalPrice += sub.TotalPrice()
	}
	return totals
}

// FoodLine is the per-food roll-up of one day's member picks.
type FoodLine struct {
	FoodID    string `json:"foodId"`
	FoodName  string `json:"foodName"`
	FoodPrice int64  `json:"foodPrice"`
	FoodUnit  string `json:"foodUnit"`
	Frequency int64  `json:"frequency"`
	// Notes carries one entry per joined member; members with a non-empty
	// requirement sort first so kitchen sheets read special requests at the
	// top.
	Notes []string `json:"notes"`
}

// FoodBreakdown builds the per-food frequency map for a group-shape day.
// Picks referencing a food missing from the restaurant list keep counting
// with an empty name and zero price; kitchen views render partial data
// rather than fail.
func FoodBreakdown(sub plan.SubOrder) []FoodLine {
	lines := map[string]*FoodLine{}

	memberIDs := make([]string, 0, len(sub.MemberOrders))
	for memberID := range sub.MemberOrders {
		memberIDs = append(memberIDs, memberID)
	}
	sort.Strings(memberIDs)

	var order []string
	for _, memberID := range memberIDs {
		mo := sub.MemberOrders[memberID]
		if !mo.Counts() {
			continue
		}
		line, ok := lines[mo.FoodID]
		if !ok {
			food := sub.Restaurant.FoodList[mo.FoodID]
			line = &FoodLine{
				FoodID:    mo.FoodID,
				FoodName:  food.FoodName,
				FoodPrice: food.FoodPrice,
				FoodUnit:  food.FoodUnit,
			}
			lines[mo.FoodID] = line
			order = append(order, mo.FoodID)
		}
		line.Frequency++
		if mo.Requirement != "" {
			line.Notes = append([]string{mo.Requirement}, line.Notes...)
		} else {
			line.Notes = append(line.Notes, "")
		}
	}

	out := make([]FoodLine, 0, len(order))
	for _, foodID := range order {
		out = append(out, *lines[foodID])
	}
	return out
}

// DayTotals sums one day's breakdown, regardless of shape.
func DayTotals(sub plan.SubOrder) Totals {
	return Totals{TotalDishes: sub.DishCount(), TotalPrice: sub.TotalPrice()}
}

// headcount is the per-day member amount fed into the platform-fee tier
// lookup: joined members for group days, total quantity for normal days.
func headcount(sub plan.SubOrder) int {
	return int(sub.DishCount())
}
