package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/auth"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/middleware"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/rating"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

// reviewerJoinChunk bounds how many reviewer/order lookups run per batch so
// one big ratings page cannot fan out into an unbounded burst of reads.
const reviewerJoinChunk = 25

type ratingView struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	Reviewer map[string]any `json:"reviewer,omitempty"`
	Order    map[string]any `json:"order,omitempty"`
	Replies  []rating.Reply `json:"replies"`
}

// CompanyRatings pages through a company's ratings, joining reviewer and
// order documents in chunked batches.
func (h *Handler) CompanyRatings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := readPathString(r, "companyId")

	filter := store.Filter{
		Type:    store.TypeRating,
		Equals:  map[string]any{"companyId": companyID},
		Page:    queryInt(r, "page"),
		PerPage: queryInt(r, "perPage"),
	}
	entities, meta, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Logger.Error("query ratings", zap.Error(err), zap.String("companyId", companyID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to list ratings")
		return
	}

	joined := h.joinEntities(ctx, entities, "reviewerId")
	orders := h.joinEntities(ctx, entities, "orderId")

	views := make([]ratingView, 0, len(entities))
	for _, entity := range entities {
		replies, err := rating.RepliesFromEntity(entity)
		if err != nil {
			h.Logger.Warn("malformed rating replies", zap.Error(err), zap.String("ratingId", entity.ID))
		}
		view := ratingView{ID: entity.ID, Metadata: entity.Metadata, Replies: replies}
		if id, ok := entity.Metadata["reviewerId"].(string); ok {
			view.Reviewer = joined[id]
		}
		if id, ok := entity.Metadata["orderId"].(string); ok {
			view.Order = orders[id]
		}
		views = append(views, view)
	}

	response.Success(w, map[string]any{
		"ratings": views,
		"meta": map[string]any{
			"page":       meta.Page,
			"perPage":    meta.PerPage,
			"totalItems": meta.TotalItems,
			"totalPages": meta.TotalPages,
		},
	})
}

// joinEntities resolves the referenced documents behind a metadata key,
// deduplicated and fetched chunk by chunk.
func (h *Handler) joinEntities(ctx context.Context, entities []store.Entity, key string) map[string]map[string]any {
	seen := map[string]struct{}{}
	var ids []string
	for _, entity := range entities {
		id, ok := entity.Metadata[key].(string)
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	out := make(map[string]map[string]any, len(ids))
	for start := 0; start < len(ids); start += reviewerJoinChunk {
		end := start + reviewerJoinChunk
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			entity, err := h.Store.Show(ctx, id)
			if err != nil {
				continue
			}
			out[id] = entity.Metadata
		}
	}
	return out
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

type replyRequest struct {
	Content string `json:"content"`
}

// RatingReply appends one reply to a rating's thread. The author's role
// comes from their token; partner replies enter the approval workflow.
func (h *Handler) RatingReply(w http.ResponseWriter, r *http.Request) {
	ratingID := readPathString(r, "ratingId")

	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.Content == "" {
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "content is required")
		return
	}

	reply, err := h.Ratings.AppendReply(r.Context(), ratingID, rating.Reply{
		ReplyRole: replyRoleFor(authCtx),
		AuthorID:  authCtx.UserID,
		Content:   req.Content,
	})
	if err != nil {
		h.writeRatingError(w, err, ratingID)
		return
	}
	response.Created(w, reply)
}

// RatingReplyApprove publishes a pending partner reply.
func (h *Handler) RatingReplyApprove(w http.ResponseWriter, r *http.Request) {
	h.setReplyApproval(w, r, rating.ApprovalApproved)
}

// RatingReplyReject hides a pending partner reply.
func (h *Handler) RatingReplyReject(w http.ResponseWriter, r *http.Request) {
	h.setReplyApproval(w, r, rating.ApprovalRejected)
}

func (h *Handler) setReplyApproval(w http.ResponseWriter, r *http.Request, state rating.ApprovalState) {
	ratingID := readPathString(r, "ratingId")
	replyID := readPathString(r, "replyId")

	if err := h.Ratings.SetReplyApproval(r.Context(), ratingID, replyID, state); err != nil {
		if errors.Is(err, rating.ErrReplyNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "reply not found")
			return
		}
		h.writeRatingError(w, err, ratingID)
		return
	}
	response.Success(w, map[string]any{"replyId": replyID, "approvalState": string(state)})
}

func (h *Handler) writeRatingError(w http.ResponseWriter, err error, ratingID string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "rating not found")
	case errors.Is(err, lock.ErrNotAcquired):
		response.Error(w, http.StatusConflict, "RATING_BUSY", "rating is busy, try again")
	case errors.Is(err, rating.ErrInvalidRole):
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", "invalid reply role")
	default:
		h.Logger.Error("rating mutation failed", zap.Error(err), zap.String("ratingId", ratingID))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "failed to update rating")
	}
}

func replyRoleFor(authCtx *middleware.AuthContext) rating.ReplyRole {
	switch authCtx.Role {
	case auth.RoleAdmin:
		return rating.RoleAdmin
	case auth.RolePartner:
		return rating.RolePartner
	case auth.RoleBooker:
		return rating.RoleBooker
	default:
		return rating.RoleParticipant
	}
}
