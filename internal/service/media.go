package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	apperrors "github.com/unevent/unevent-api/internal/errors"
)

// MediaServiceOptions groups dependencies for MediaService.
type MediaServiceOptions struct {
	Repo   core.MediaRepository // Required
	Logger *slog.Logger         // Optional
}

// MediaService registers uploads. New media is temporary until a listing
// references it.
type MediaService struct {
	repo   core.MediaRepository
	logger *slog.Logger
}

// NewMediaService constructs a MediaService.
func NewMediaService(opts MediaServiceOptions) (*MediaService, error) {
	if opts.Repo == nil {
		return nil, errors.New("MediaRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaService{repo: opts.Repo, logger: logger.With("component", "media_service")}, nil
}

// Register records uploaded media as temporary.
func (s *MediaService) Register(ctx context.Context, req *model.RegisterMediaRequest) (*model.Media, error) {
	if req == nil {
		return nil, apperrors.Validation("media data is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	m, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register media: %w", err)
	}
	s.logger.DebugContext(ctx, "media registered", "media_id", m.ID, "filename", m.Filename)
	return m, nil
}

// Get returns media by id.
func (s *MediaService) Get(ctx context.Context, id string) (*model.Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return m, nil
}
