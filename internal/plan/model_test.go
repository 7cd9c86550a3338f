package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func groupDay() SubOrder {
	return SubOrder{
		Restaurant: Restaurant{
			ID: "rest-1",
			FoodList: map[string]Food{
				"pho": {FoodName: "Pho bo", FoodPrice: 55000},
				"bun": {FoodName: "Bun cha", FoodPrice: 45000},
			},
		},
		MemberOrders: map[string]MemberOrder{
			"alice": {FoodID: "pho", Status: MemberStatusJoined},
			"bob":   {FoodID: "bun", Status: MemberStatusJoined},
			"carol": {FoodID: "pho", Status: MemberStatusNotJoined},
			"dave":  {FoodID: "", Status: MemberStatusJoined},
		},
	}
}

func TestSubOrderGroupShape(t *testing.T) {
	sub := groupDay()
	assert.Equal(t, int64(2), sub.DishCount())
	assert.Equal(t, int64(100000), sub.TotalPrice())
}

func TestSubOrderMissingFoodPricesAtZero(t *testing.T) {
	sub := groupDay()
	sub.MemberOrders["eve"] = MemberOrder{FoodID: "off-menu", Status: MemberStatusJoined}
	assert.Equal(t, int64(3), sub.DishCount())
	assert.Equal(t, int64(100000), sub.TotalPrice())
}

func TestSubOrderNormalShape(t *testing.T) {
	sub := SubOrder{
		LineItems: []LineItem{
			{ID: "pho", Quantity: 2, UnitPrice: 55000, Price: 110000},
			{ID: "bun", Quantity: 0, UnitPrice: 45000, Price: 45000},
		},
	}
	// zero quantity counts as one unit
	assert.Equal(t, int64(3), sub.DishCount())
	assert.Equal(t, int64(155000), sub.TotalPrice())
}

func TestSubOrderCanceled(t *testing.T) {
	byStatus := groupDay()
	byStatus.Status = SubOrderStatusCanceled
	assert.Zero(t, byStatus.DishCount())
	assert.Zero(t, byStatus.TotalPrice())

	byTransition := groupDay()
	byTransition.LastTransition = "transition/operator-cancel-plan"
	assert.True(t, byTransition.IsCanceled())
	assert.Zero(t, byTransition.TotalPrice())
}

func TestApplyMemberOrderTouchesOneKey(t *testing.T) {
	detail := OrderDetail{"2024-03-11": groupDay()}

	detail = ApplyMemberOrder(detail, "2024-03-11", "alice", MemberOrder{FoodID: "bun", Status: MemberStatusJoined})

	assert.Equal(t, "bun", detail["2024-03-11"].MemberOrders["alice"].FoodID)
	assert.Equal(t, "bun", detail["2024-03-11"].MemberOrders["bob"].FoodID)
	assert.Len(t, detail["2024-03-11"].MemberOrders, 4)
}

func TestApplyMemberOrderCreatesDay(t *testing.T) {
	detail := ApplyMemberOrder(nil, "2024-03-12", "alice", MemberOrder{FoodID: "pho", Status: MemberStatusJoined})
	assert.Equal(t, "pho", detail["2024-03-12"].MemberOrders["alice"].FoodID)
}

func TestApplyMemberOrderIdempotent(t *testing.T) {
	mo := MemberOrder{FoodID: "pho", Status: MemberStatusJoined}
	detail := ApplyMemberOrder(OrderDetail{}, "2024-03-11", "alice", mo)
	detail = ApplyMemberOrder(detail, "2024-03-11", "alice", mo)
	assert.Len(t, detail["2024-03-11"].MemberOrders, 1)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderState
		want     bool
	}{
		{OrderStateNew, OrderStatePicking, true},
		{OrderStatePicking, OrderStateInProgress, true},
		{OrderStateInProgress, OrderStateCompleted, true},
		{OrderStateNew, OrderStateCompleted, false},
		{OrderStateInProgress, OrderStatePicking, false},
		{OrderStateCompleted, OrderStateInProgress, false},
		{OrderStatePicking, OrderStatePicking, false},
		{OrderStatePicking, OrderStateCanceled, true},
		{OrderStateCompleted, OrderStateCanceled, false},
		{OrderStateCanceled, OrderStatePicking, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"from %s to %s", tt.from, tt.to)
	}
}

func TestOrderTracked(t *testing.T) {
	order := Order{Participants: []string{"alice"}, Anonymous: []string{"guest-1"}}
	assert.True(t, order.Tracked("alice"))
	assert.True(t, order.Tracked("guest-1"))
	assert.False(t, order.Tracked("mallory"))
}
