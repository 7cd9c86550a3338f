package handlers

import (
	"context"
	"net/http"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

type sheetMember struct {
	MemberID    string `json:"memberId"`
	Name        string `json:"name"`
	Requirement string `json:"requirement,omitempty"`
	Barcode     string `json:"barcode"`
}

type sheetLine struct {
	FoodID    string        `json:"foodId"`
	FoodName  string        `json:"foodName"`
	FoodUnit  string        `json:"foodUnit"`
	Frequency int64         `json:"frequency"`
	Members   []sheetMember `json:"members"`
}

type sheetGroup struct {
	GroupName string      `json:"groupName"`
	Lines     []sheetLine `json:"lines"`
}

// PickingSheet renders the kitchen-facing sheet for one day of a plan:
// per-food frequencies, member names and requirements, and a barcode per
// member pick.
func (h *Handler) PickingSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := readPathString(r, "orderId")
	date := r.URL.Query().Get("date")
	if date == "" {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "date is required")
		return
	}

	order, _, err := h.loadOrder(ctx, orderID)
	if err != nil {
		h.writeStoreError(w, err, "order")
		return
	}
	planID, ok := planIDFor(order)
	if !ok {
		response.Error(w, http.StatusConflict, "NO_PLAN", "order has no plan yet")
		return
	}
	detail, err := h.loadPlanDetail(ctx, planID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}

	profiles := h.memberProfiles(ctx, detail, date)

	groups := companyGroups(ctx, h, order.CompanyID)
	if len(groups) > 0 {
		leveled := pricing.GroupPickingOrderByFoodLevels(detail, date, planID, profiles, groups)
		out := make([]sheetGroup, 0, len(leveled))
		for _, g := range leveled {
			out = append(out, sheetGroup{GroupName: g.GroupName, Lines: h.tokenizedLines(g.Lines)})
		}
		response.Success(w, map[string]any{"date": date, "groups": out})
		return
	}

	lines := pricing.GroupPickingOrderByFood(detail, date, planID, profiles)
	response.Success(w, map[string]any{"date": date, "lines": h.tokenizedLines(lines)})
}

func (h *Handler) tokenizedLines(lines []pricing.PickingLine) []sheetLine {
	out := make([]sheetLine, 0, len(lines))
	for _, line := range lines {
		members := make([]sheetMember, 0, len(line.Members))
		for _, m := range line.Members {
			members = append(members, sheetMember{
				MemberID:    m.Ref.MemberID,
				Name:        m.Name,
				Requirement: m.Requirement,
				Barcode:     h.Tokenizer.Token(m.Ref),
			})
		}
		out = append(out, sheetLine{
			FoodID:    line.FoodID,
			FoodName:  line.FoodName,
			FoodUnit:  line.FoodUnit,
			Frequency: line.Frequency,
			Members:   members,
		})
	}
	return out
}

// memberProfiles joins the user entities behind one day's picks. Missing
// profiles are fine; names fall back to the member id.
func (h *Handler) memberProfiles(ctx context.Context, detail plan.OrderDetail, date string) map[string]pricing.Profile {
	profiles := map[string]pricing.Profile{}
	sub, ok := detail[date]
	if !ok {
		return profiles
	}
	for memberID := range sub.MemberOrders {
		entity, err := h.Store.Show(ctx, memberID)
		if err != nil {
			continue
		}
		profiles[memberID] = pricing.Profile{
			FirstName:   stringField(entity.Metadata, "firstName"),
			LastName:    stringField(entity.Metadata, "lastName"),
			DisplayName: stringField(entity.Metadata, "displayName"),
		}
	}
	return profiles
}

func stringField(metadata map[string]any, key string) string {
	s, _ := metadata[key].(string)
	return s
}

// companyGroups reads the company's member-group assignments, if any.
func companyGroups(ctx context.Context, h *Handler, companyID string) map[string][]string {
	if companyID == "" {
		return nil
	}
	entity, err := h.Store.Show(ctx, companyID)
	if err != nil {
		return nil
	}
	raw, ok := entity.Metadata["groups"].(map[string]any)
	if !ok {
		return nil
	}
	groups := make(map[string][]string, len(raw))
	for name, members := range raw {
		list, ok := members.([]any)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(list))
		for _, m := range list {
			if id, ok := m.(string); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			groups[name] = ids
		}
	}
	return groups
}

type scanVerifyRequest struct {
	Token string `json:"token"`
}

// ScanVerify checks a scanned barcode and echoes the pick it identifies.
func (h *Handler) ScanVerify(w http.ResponseWriter, r *http.Request) {
	var req scanVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	ref, ok := h.Tokenizer.Verify(req.Token)
	if !ok {
		response.Error(w, http.StatusUnprocessableEntity, "INVALID_TOKEN", "token is not valid")
		return
	}

	detail, err := h.loadPlanDetail(r.Context(), ref.PlanID)
	if err != nil {
		h.writeStoreError(w, err, "plan")
		return
	}
	sub, ok := detail[ref.DateKey]
	if !ok || sub.IsCanceled() {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "no live sub-order for scanned day")
		return
	}
	mo, ok := sub.MemberOrders[ref.MemberID]
	if !ok || !mo.Counts() {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "member has no counted pick for scanned day")
		return
	}

	food := sub.Restaurant.FoodList[mo.FoodID]
	response.Success(w, map[string]any{
		"planId":   ref.PlanID,
		"memberId": ref.MemberID,
		"date":     ref.DateKey,
		"foodId":   mo.FoodID,
		"foodName": food.FoodName,
	})
}
