package pricing

import (
	"testing"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

func groupDay(members map[string]plan.MemberOrder) plan.SubOrder {
	return plan.SubOrder{
		Restaurant: plan.Restaurant{
			ID:             "r1",
			RestaurantName: "Com Tam Ba Ghien",
			FoodList: map[string]plan.Food{
				"f1": {FoodName: "Com tam suon", FoodPrice: 50000, FoodUnit: "phan"},
				"f2": {FoodName: "Bun thit nuong", FoodPrice: 45000, FoodUnit: "phan"},
			},
		},
		MemberOrders: members,
	}
}

func TestAggregateGroupOrder(t *testing.T) {
	cases := []struct {
		name        string
		detail      plan.OrderDetail
		opts        AggregateOptions
		wantDishes  int64
		wantPrice   int64
	}{
		{
			name: "two joined one unjoined same dish",
			detail: plan.OrderDetail{
				"1700000000000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
					"u2": {FoodID: "f1", Status: plan.MemberStatusJoined},
					"u3": {FoodID: "f1", Status: plan.MemberStatusNotJoined},
				}),
			},
			wantDishes: 2,
			wantPrice:  100000,
		},
		{
			name: "empty foodId contributes nothing",
			detail: plan.OrderDetail{
				"1700000000000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "", Status: plan.MemberStatusJoined},
					"u2": {FoodID: "f2", Status: plan.MemberStatusJoined},
				}),
			},
			wantDishes: 1,
			wantPrice:  45000,
		},
		{
			name: "missing food prices at zero",
			detail: plan.OrderDetail{
				"1700000000000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "ghost", Status: plan.MemberStatusJoined},
					"u2": {FoodID: "f1", Status: plan.MemberStatusJoined},
				}),
			},
			wantDishes: 2,
			wantPrice:  50000,
		},
		{
			name: "canceled day contributes zero",
			detail: plan.OrderDetail{
				"1700000000000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
				}),
				"1700086400000": {
					Restaurant: plan.Restaurant{ID: "r2"},
					MemberOrders: map[string]plan.MemberOrder{
						"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
					},
					Status: plan.SubOrderStatusCanceled,
				},
			},
			wantDishes: 1,
			wantPrice:  50000,
		},
		{
			name: "canceled transition excluded like canceled status",
			detail: plan.OrderDetail{
				"1700000000000": {
					Restaurant: plan.Restaurant{
						FoodList: map[string]plan.Food{"f1": {FoodPrice: 50000}},
					},
					MemberOrders: map[string]plan.MemberOrder{
						"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
					},
					LastTransition: "transition/operator-cancel-plan",
				},
			},
			wantDishes: 0,
			wantPrice:  0,
		},
		{
			name: "date filter keeps only the matching day",
			detail: plan.OrderDetail{
				"1700000000000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
				}),
				"1700086400000": groupDay(map[string]plan.MemberOrder{
					"u1": {FoodID: "f2", Status: plan.MemberStatusJoined},
				}),
			},
			opts:       AggregateOptions{Date: "1700086400000"},
			wantDishes: 1,
			wantPrice:  45000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := Aggregate(tc.detail, tc.opts)
			if totals.TotalDishes != tc.wantDishes {
				t.Fatalf("totalDishes: expected %d, got %d", tc.wantDishes, totals.TotalDishes)
			}
			if totals.TotalPrice != tc.wantPrice {
				t.Fatalf("totalPrice: expected %d, got %d", tc.wantPrice, totals.TotalPrice)
			}
		})
	}
}

func TestAggregateNormalOrder(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": {
			Restaurant: plan.Restaurant{ID: "r1"},
			LineItems: []plan.LineItem{
				{ID: "l1", Name: "Set lunch A", Quantity: 2, Price: 60000},
				{ID: "l2", Name: "Set lunch B", Quantity: 1, Price: 30000},
			},
		},
	}

	totals := Aggregate(detail, AggregateOptions{})
	if totals.TotalDishes != 3 {
		t.Fatalf("totalDishes: expected 3, got %d", totals.TotalDishes)
	}
	if totals.TotalPrice != 90000 {
		t.Fatalf("totalPrice: expected 90000, got %d", totals.TotalPrice)
	}
}

func TestAggregateNormalOrderQuantityDefaultsToOne(t *testing.T) {
	detail := plan.OrderDetail{
		"1700000000000": {
			LineItems: []plan.LineItem{{ID: "l1", Price: 25000}},
		},
	}

	totals := Aggregate(detail, AggregateOptions{})
	if totals.TotalDishes != 1 {
		t.Fatalf("totalDishes: expected 1, got %d", totals.TotalDishes)
	}
}

func TestAggregateCanceledEqualsRemoved(t *testing.T) {
	valid := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
		"u2": {FoodID: "f2", Status: plan.MemberStatusJoined},
	})
	canceled := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
	})
	canceled.Status = plan.SubOrderStatusCanceled

	full := plan.OrderDetail{"1700000000000": valid, "1700086400000": canceled}
	trimmed := plan.OrderDetail{"1700000000000": valid}

	if got, want := Aggregate(full, AggregateOptions{}), Aggregate(trimmed, AggregateOptions{}); got != want {
		t.Fatalf("aggregation with canceled day %+v differs from without %+v", got, want)
	}
}

func TestFoodBreakdownNotesOrdering(t *testing.T) {
	sub := groupDay(map[string]plan.MemberOrder{
		"u1": {FoodID: "f1", Status: plan.MemberStatusJoined},
		"u2": {FoodID: "f1", Status: plan.MemberStatusJoined, Requirement: "khong hanh"},
		"u3": {FoodID: "f1", Status: plan.MemberStatusJoined},
	})

	lines := FoodBreakdown(sub)
	if len(lines) != 1 {
		t.Fatalf("expected 1 food line, got %d", len(lines))
	}
	line := lines[0]
	if line.Frequency != 3 {
		t.Fatalf("expected frequency 3, got %d", line.Frequency)
	}
	if len(line.Notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(line.Notes))
	}
	if line.Notes[0] != "khong hanh" {
		t.Fatalf("expected requirement note first, got %q", line.Notes[0])
	}
}

func TestFoodBreakdownMissingFoodDefaults(t *testing.T) {
	sub := plan.SubOrder{
		Restaurant: plan.Restaurant{FoodList: map[string]plan.Food{}},
		MemberOrders: map[string]plan.MemberOrder{
			"u1": {FoodID: "ghost", Status: plan.MemberStatusJoined},
		},
	}

	lines := FoodBreakdown(sub)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].FoodName != "" || lines[0].FoodPrice != 0 {
		t.Fatalf("expected empty defaults for missing food, got %+v", lines[0])
	}
	if lines[0].Frequency != 1 {
		t.Fatalf("expected frequency 1, got %d", lines[0].Frequency)
	}
}
