package plan

// ApplyMemberOrder writes one member's pick into the detail map, touching
// nothing else. Other members' entries for the same date survive untouched,
// which makes re-applying the same delta after a crashed job idempotent.
func ApplyMemberOrder(detail OrderDetail, dateKey, memberID string, mo MemberOrder) OrderDetail {
	if detail == nil {
		detail = OrderDetail{}
	}
	day := detail[dateKey]
	if day.MemberOrders == nil {
		day.MemberOrders = map[string]MemberOrder{}
	}
	day.MemberOrders[memberID] = mo
	detail[dateKey] = day
	return detail
}

// MemberOrderDelta is one day's incoming pick payload for a single member.
type MemberOrderDelta struct {
	DateKey     string
	MemberOrder MemberOrder
}

// ApplyMemberOrders applies a multi-day payload for one member.
func ApplyMemberOrders(detail OrderDetail, memberID string, deltas []MemberOrderDelta) OrderDetail {
	for _, delta := range deltas {
		detail = ApplyMemberOrder(detail, delta.DateKey, memberID, delta.MemberOrder)
	}
	return detail
}
