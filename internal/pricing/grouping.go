package pricing

import (
	"sort"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
)

// Profile is the slice of a user entity the picking sheet needs.
type Profile struct {
	FirstName   string
	LastName    string
	DisplayName string
}

// DisplayNameFor resolves a member's printable name: display name first,
// then first+last, then the raw id so sheets never show a blank.
func DisplayNameFor(memberID string, profiles map[string]Profile) string {
	profile, ok := profiles[memberID]
	if !ok {
		return memberID
	}
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	name := profile.FirstName
	if profile.LastName != "" {
		if name != "" {
			name += " "
		}
		name += profile.LastName
	}
	if name == "" {
		return memberID
	}
	return name
}

// MemberRef identifies one member's pick on one day of one plan. The
// scanning subsystem derives barcode tokens from these tuples; the grouping
// code knows nothing about the token format.
type MemberRef struct {
	PlanID   string `json:"planId"`
	MemberID string `json:"memberId"`
	DateKey  string `json:"date"`
}

type PickingMember struct {
	Ref         MemberRef `json:"ref"`
	Name        string    `json:"name"`
	Requirement string    `json:"requirement,omitempty"`
}

// PickingLine is one food row on the kitchen-facing picking sheet.
type PickingLine struct {
	FoodID    string          `json:"foodId"`
	FoodName  string          `json:"foodName"`
	FoodUnit  string          `json:"foodUnit"`
	Frequency int64           `json:"frequency"`
	Members   []PickingMember `json:"members"`
}

// GroupPickingOrderByFood groups one day's joined picks by food for the
// kitchen sheet. Members with a requirement lead each food's member list.
func GroupPickingOrderByFood(detail plan.OrderDetail, dateKey, planID string, profiles map[string]Profile) []PickingLine {
	sub, ok := detail[dateKey]
	if !ok || sub.IsCanceled() {
		return nil
	}

	memberIDs := make([]string, 0, len(sub.MemberOrders))
	for memberID := range sub.MemberOrders {
		memberIDs = append(memberIDs, memberID)
	}
	sort.Strings(memberIDs)

	lines := map[string]*PickingLine{}
	var order []string
	for _, memberID := range memberIDs {
		mo := sub.MemberOrders[memberID]
		if !mo.Counts() {
			continue
		}
		line, found := lines[mo.FoodID]
		if !found {
			food := sub.Restaurant.FoodList[mo.FoodID]
			line = &PickingLine{
				FoodID:   mo.FoodID,
				FoodName: food.FoodName,
				FoodUnit: food.FoodUnit,
			}
			lines[mo.FoodID] = line
			order = append(order, mo.FoodID)
		}
		line.Frequency++

		member := PickingMember{
			Ref:         MemberRef{PlanID: planID, MemberID: memberID, DateKey: dateKey},
			Name:        DisplayNameFor(memberID, profiles),
			Requirement: mo.Requirement,
		}
		if mo.Requirement != "" {
			line.Members = append([]PickingMember{member}, line.Members...)
		} else {
			line.Members = append(line.Members, member)
		}
	}

	out := make([]PickingLine, 0, len(order))
	for _, foodID := range order {
		out = append(out, *lines[foodID])
	}
	return out
}

// FoodLevelGroup is one company-defined member group's slice of the picking
// sheet.
type FoodLevelGroup struct {
	GroupName string        `json:"groupName"`
	Lines     []PickingLine `json:"lines"`
}

// OthersGroupName buckets members not assigned to any company group.
const OthersGroupName = "others"

// GroupPickingOrderByFoodLevels partitions members into company groups, then
// applies the per-food fold inside each partition. Unassigned members fall
// into the "others" bucket.
func GroupPickingOrderByFoodLevels(detail plan.OrderDetail, dateKey, planID string, profiles map[string]Profile, groups map[string][]string) []FoodLevelGroup {
	sub, ok := detail[dateKey]
	if !ok || sub.IsCanceled() {
		return nil
	}

	assigned := map[string]string{}
	for groupName, memberIDs := range groups {
		for _, memberID := range memberIDs {
			assigned[memberID] = groupName
		}
	}

	partitions := map[string]plan.OrderDetail{}
	for memberID, mo := range sub.MemberOrders {
		groupName, ok := assigned[memberID]
		if !ok {
			groupName = OthersGroupName
		}
		part, ok := partitions[groupName]
		if !ok {
			part = plan.OrderDetail{dateKey: {Restaurant: sub.Restaurant, MemberOrders: map[string]plan.MemberOrder{}}}
			partitions[groupName] = part
		}
		part[dateKey].MemberOrders[memberID] = mo
	}

	groupNames := make([]string, 0, len(partitions))
	for groupName := range partitions {
		groupNames = append(groupNames, groupName)
	}
	sort.Strings(groupNames)

	out := make([]FoodLevelGroup, 0, len(groupNames))
	for _, groupName := range groupNames {
		lines := GroupPickingOrderByFood(partitions[groupName], dateKey, planID, profiles)
		if len(lines) == 0 {
			continue
		}
		out = append(out, FoodLevelGroup{GroupName: groupName, Lines: lines})
	}
	return out
}
