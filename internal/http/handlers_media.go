package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// MediaService registers uploaded media.
type MediaService interface {
	Register(ctx context.Context, req *model.RegisterMediaRequest) (*model.Media, error)
	Get(ctx context.Context, id string) (*model.Media, error)
}

// MediaHandlers serves the media endpoints.
type MediaHandlers struct {
	Svc    MediaService
	Logger *slog.Logger
}

// Register handles POST /api/media. The media stays temporary until a listing references it.
func (h *MediaHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterMediaRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	m, err := h.Svc.Register(r.Context(), &req)
	if err != nil {
		RenderError(ErrorOpts{W: w, R: r, Err: err, Logger: h.Logger})
		return
	}
	h.logger().InfoContext(r.Context(), "media registered", "media_id", m.ID)
	WriteJSON(w, http.StatusCreated, m)
}

// Get handles GET /api/media/{id}.
func (h *MediaHandlers) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		RenderError(ErrorOpts{W: w, R: r, Err: err, Logger: h.Logger})
		return
	}
	WriteJSON(w, http.StatusOK, m)
}

func (h *MediaHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
