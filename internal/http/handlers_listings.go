package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/service"
	"github.com/unevent/unevent-api/internal/service/hooks"
)

const (
	defaultListingPageSize = 20
	maxListingPageSize     = 100
)

// ListingService is the subset of service.ListingService used by the handlers.
type ListingService interface {
	Create(ctx context.Context, actor *domainauth.Actor, collection model.Collection, input *model.Listing) (*service.WriteResult, error)
	Update(ctx context.Context, actor *domainauth.Actor, id string, patch *model.ListingPatch) (*service.WriteResult, error)
	Moderate(
		ctx context.Context,
		actor *domainauth.Actor,
		id string,
		status model.ModerationStatus,
		reason string,
	) (*service.WriteResult, error)
	SoftDelete(ctx context.Context, actor *domainauth.Actor, id string) (*service.WriteResult, error)
	Restore(ctx context.Context, actor *domainauth.Actor, id string) (*service.WriteResult, error)
	HardDelete(ctx context.Context, actor *domainauth.Actor, id string) error
	Get(ctx context.Context, actor *domainauth.Actor, id string) (*model.Listing, error)
	List(ctx context.Context, actor *domainauth.Actor, filter model.ListingFilter) ([]*model.Listing, error)
}

// ListingHandlers serves the listing endpoints.
type ListingHandlers struct {
	Svc    ListingService
	Logger *slog.Logger
}

type hookResultJSON struct {
	Hook   string       `json:"hook"`
	Status hooks.Status `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type writeResponse struct {
	Listing *model.Listing   `json:"listing"`
	Hooks   []hookResultJSON `json:"hooks"`
}

func newWriteResponse(res *service.WriteResult) writeResponse {
	out := writeResponse{Listing: res.Listing, Hooks: make([]hookResultJSON, 0, len(res.Hooks))}
	for _, h := range res.Hooks {
		j := hookResultJSON{Hook: h.Hook, Status: h.Status, Detail: h.Detail}
		if h.Err != nil {
			j.Error = h.Err.Error()
		}
		out.Hooks = append(out.Hooks, j)
	}
	return out
}

type listResponse struct {
	Data   []*model.Listing `json:"data"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type moderationRequest struct {
	Status model.ModerationStatus `json:"status"`
	Reason string                 `json:"reason"`
}

func (h *ListingHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	RenderError(ErrorOpts{W: w, R: r, Err: err, Logger: h.Logger})
}

// List handles GET /api/listings.
func (h *ListingHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListingPageSize, maxListingPageSize)
	q := r.URL.Query()
	filter := model.ListingFilter{
		Collection:     model.Collection(q.Get("collection")),
		Status:         model.ModerationStatus(q.Get("status")),
		OwnerID:        q.Get("owner"),
		IncludeDeleted: parseBoolQuery(r, "include_deleted"),
		Limit:          limit,
		Offset:         offset,
	}

	items, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*model.Listing{}
	}
	WriteJSON(w, http.StatusOK, listResponse{Data: items, Limit: limit, Offset: offset})
}

// Create handles POST /api/listings/{collection}.
func (h *ListingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in model.Listing
	if !DecodeJSON(w, r, &in) {
		return
	}
	collection := model.Collection(r.PathValue("collection"))

	res, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), collection, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newWriteResponse(res))
}

// Get handles GET /api/listings/{id}.
func (h *ListingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.Svc.Get(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, l)
}

// Update handles PATCH /api/listings/{id}.
func (h *ListingHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ListingPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	res, err := h.Svc.Update(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), &patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newWriteResponse(res))
}

// Moderate handles POST /api/listings/{id}/moderation.
func (h *ListingHandlers) Moderate(w http.ResponseWriter, r *http.Request) {
	var req moderationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Moderate(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), req.Status, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newWriteResponse(res))
}

// SoftDelete handles DELETE /api/listings/{id}.
func (h *ListingHandlers) SoftDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.SoftDelete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newWriteResponse(res))
}

// Restore handles POST /api/listings/{id}/restore.
func (h *ListingHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Restore(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newWriteResponse(res))
}

// HardDelete handles DELETE /api/listings/{id}/permanent.
func (h *ListingHandlers) HardDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.HardDelete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
