package plan

// OrderType distinguishes per-person group picking from bulk catering orders.
type OrderType string

const (
	OrderTypeGroup  OrderType = "group"
	OrderTypeNormal OrderType = "normal"
)

type OrderState string

const (
	OrderStateNew        OrderState = "isNew"
	OrderStatePicking    OrderState = "picking"
	OrderStateInProgress OrderState = "inProgress"
	OrderStateCompleted  OrderState = "completed"
	OrderStateCanceled   OrderState = "canceled"
)

type MemberOrderStatus string

const (
	MemberStatusJoined     MemberOrderStatus = "joined"
	MemberStatusNotJoined  MemberOrderStatus = "notJoined"
	MemberStatusNotAllowed MemberOrderStatus = "notAllowed"
	MemberStatusEmpty      MemberOrderStatus = "empty"
)

const SubOrderStatusCanceled = "canceled"

// Transitions that void a sub-order's booking transaction. A day whose
// lastTransition is in this set is excluded from aggregation exactly like a
// canceled status.
var canceledTransitions = map[string]struct{}{
	"transition/operator-cancel-plan":          {},
	"transition/operator-cancel-after-confirm": {},
	"transition/booker-cancel-plan":            {},
	"transition/cancel-delivery":               {},
}

func IsCanceledTransition(transition string) bool {
	_, ok := canceledTransitions[transition]
	return ok
}

type Food struct {
	FoodName  string `json:"foodName"`
	FoodPrice int64  `json:"foodPrice"`
	FoodUnit  string `json:"foodUnit"`
}

type Restaurant struct {
	ID             string          `json:"id"`
	RestaurantName string          `json:"restaurantName"`
	FoodList       map[string]Food `json:"foodList"`
}

// MemberOrder is one participant's pick for one date. It counts toward
// totals only when Status is joined and FoodID is non-empty.
type MemberOrder struct {
	FoodID               string            `json:"foodId"`
	SecondaryFoodID      string            `json:"secondaryFoodId,omitempty"`
	Status               MemberOrderStatus `json:"status"`
	Requirement          string            `json:"requirement,omitempty"`
	SecondaryRequirement string            `json:"secondaryRequirement,omitempty"`
}

func (m MemberOrder) Counts() bool {
	return m.Status == MemberStatusJoined && m.FoodID != ""
}

type LineItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	// Price is the line total, not the unit price.
	Price int64 `json:"price"`
}

// SubOrder is one day's entry in a plan's order detail. Group days carry
// MemberOrders; normal (catering) days carry LineItems.
type SubOrder struct {
	Restaurant     Restaurant             `json:"restaurant"`
	MemberOrders   map[string]MemberOrder `json:"memberOrders,omitempty"`
	LineItems      []LineItem             `json:"lineItems,omitempty"`
	Status         string                 `json:"status,omitempty"`
	TransactionID  string                 `json:"transactionId,omitempty"`
	LastTransition string                 `json:"lastTransition,omitempty"`
	IsPaid         bool                   `json:"isPaid,omitempty"`
}

func (s SubOrder) IsCanceled() bool {
	return s.Status == SubOrderStatusCanceled || IsCanceledTransition(s.LastTransition)
}

func (s SubOrder) IsNormal() bool {
	return len(s.LineItems) > 0
}

// DishCount counts billable dishes for the day.
func (s SubOrder) DishCount() int64 {
	if s.IsCanceled() {
		return 0
	}
	if s.IsNormal() {
		var total int64
		for _, item := range s.LineItems {
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			total += quantity
		}
		return total
	}
	var total int64
	for _, mo := range s.MemberOrders {
		if mo.Counts() {
			total++
		}
	}
	return total
}

// TotalPrice sums the day's food cost. Picks referencing a food missing from
// the restaurant's food list price at zero rather than failing.
func (s SubOrder) TotalPrice() int64 {
	if s.IsCanceled() {
		return 0
	}
	if s.IsNormal() {
		var total int64
		for _, item := range s.LineItems {
			total += item.Price
		}
		return total
	}
	var total int64
	for _, mo := range s.MemberOrders {
		if !mo.Counts() {
			continue
		}
		total += s.Restaurant.FoodList[mo.FoodID].FoodPrice
	}
	return total
}

// OrderDetail maps epoch-millisecond date keys to sub-orders.
type OrderDetail map[string]SubOrder

// Order is the corporate order wrapping one plan (designed for several).
type Order struct {
	ID                string     `json:"id"`
	CompanyID         string     `json:"companyId"`
	BookerID          string     `json:"bookerId"`
	OrderType         OrderType  `json:"orderType"`
	OrderState        OrderState `json:"orderState"`
	StartDate         int64      `json:"startDate"`
	EndDate           int64      `json:"endDate"`
	DeliveryHour      string     `json:"deliveryHour"`
	DeadlineDate      int64      `json:"deadlineDate"`
	MemberAmount      int        `json:"memberAmount"`
	PackagePerMember  int64      `json:"packagePerMember"`
	PartnerIDs        []string   `json:"partnerIds"`
	Participants      []string   `json:"participants"`
	Anonymous         []string   `json:"anonymous"`
	HasSpecificPCCFee bool       `json:"hasSpecificPCCFee"`
	SpecificPCCFee    int64      `json:"specificPCCFee"`
	VATPercentage     float64    `json:"orderVATPercentage"`
	ServiceFees       float64    `json:"serviceFeePercentage"`
	Plans             []string   `json:"plans"`
}

// Tracked reports whether userID is already known to the order, either as a
// registered participant or as a previously seen anonymous contributor.
func (o Order) Tracked(userID string) bool {
	for _, id := range o.Participants {
		if id == userID {
			return true
		}
	}
	for _, id := range o.Anonymous {
		if id == userID {
			return true
		}
	}
	return false
}

var stateRank = map[OrderState]int{
	OrderStateNew:        0,
	OrderStatePicking:    1,
	OrderStateInProgress: 2,
	OrderStateCompleted:  3,
}

// CanTransition enforces the monotonic order lifecycle. Cancellation is
// allowed from any non-terminal state.
func CanTransition(from, to OrderState) bool {
	if from == to {
		return false
	}
	if to == OrderStateCanceled {
		return from != OrderStateCompleted && from != OrderStateCanceled
	}
	fromRank, ok := stateRank[from]
	if !ok {
		return false
	}
	toRank, ok := stateRank[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}
