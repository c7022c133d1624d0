package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unevent/unevent-api/internal/core"
	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/domain/moderation"
	apperrors "github.com/unevent/unevent-api/internal/errors"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/service/hooks"
)

// ListingServiceOptions groups dependencies for ListingService.
type ListingServiceOptions struct {
	Listings core.ListingRepository // Required: listing persistence
	Clients  hooks.Clients          // Optional: hook collaborators; Listings is filled from Listings above
	Settings hooks.Settings         // Optional: hook settings used to build the default pipeline
	Pipeline *hooks.Pipeline        // Optional: override the default listing pipeline
	Metrics  *metrics.Metrics       // Optional
	Logger   *slog.Logger           // Optional
}

// ListingService runs the hook pipeline around listing persistence.
type ListingService struct {
	listings core.ListingRepository
	clients  hooks.Clients
	pipeline *hooks.Pipeline
	now      func() time.Time
	logger   *slog.Logger
}

// WriteResult is a persisted listing plus the outcome of its afterChange hooks.
type WriteResult struct {
	Listing *model.Listing
	Hooks   []hooks.Result
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NewListingService constructs a ListingService.
func NewListingService(opts ListingServiceOptions) (*ListingService, error) {
	if opts.Listings == nil {
		return nil, errors.New("ListingRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = hooks.NewListingPipeline(opts.Settings)
	}
	if pipeline.Observe == nil && opts.Metrics != nil {
		m := opts.Metrics
		pipeline.Observe = func(r hooks.Result) { m.HookResult(r.Hook, string(r.Status)) }
	}

	clients := opts.Clients
	clients.Listings = opts.Listings

	now := opts.Settings.Now
	if now == nil {
		now = time.Now
	}

	return &ListingService{
		listings: opts.Listings,
		clients:  clients,
		pipeline: pipeline,
		now:      now,
		logger:   logger.With("component", "listing_service"),
	}, nil
}

// MustNewListingService constructs a ListingService and panics on error.
func MustNewListingService(opts ListingServiceOptions) *ListingService {
	svc, err := NewListingService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ListingService: %v", err))
	}
	return svc
}

func (s *ListingService) requestContext(actor *domainauth.Actor) hooks.RequestContext {
	log := s.logger
	if actor != nil {
		log = log.With("actor", actor.UserID)
	}
	return hooks.RequestContext{Actor: actor, Logger: log, Clients: s.clients}
}

// Create runs beforeValidate, inserts the listing into collection and runs afterChange.
func (s *ListingService) Create(
	ctx context.Context,
	actor *domainauth.Actor,
	collection model.Collection,
	input *model.Listing,
) (*WriteResult, error) {
	if input == nil {
		return nil, apperrors.Validation("listing data is required")
	}
	if !collection.Valid() {
		return nil, apperrors.ValidationField("collection", fmt.Sprintf("unknown collection %q", collection))
	}

	data := input.Clone()
	data.ID = ""
	data.Collection = collection
	data.DeletedAt = nil
	if !actor.IsAdmin() {
		data.ModerationStatus = ""
		data.RejectionReason = ""
		data.Owner = nil
		// Claim state belongs to importers.
		data.ClaimStatus = ""
	}

	rc := s.requestContext(actor)
	doc, err := s.pipeline.RunBeforeValidate(ctx, rc, hooks.OperationCreate, data)
	if err != nil {
		return nil, err
	}
	if err := validateListing(doc); err != nil {
		return nil, err
	}

	created, err := s.listings.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	s.logger.InfoContext(ctx, "listing created",
		"listing_id", created.ID,
		"collection", created.Collection,
		"status", created.ModerationStatus,
	)

	results := s.pipeline.RunAfterChange(ctx, rc, hooks.ChangeEvent{
		Operation: hooks.OperationCreate,
		Doc:       created,
	})
	return &WriteResult{Listing: created, Hooks: results}, nil
}

// Update merges patch onto the stored listing and persists it. Non-admins may
// only edit listings they own and may not touch moderation fields or the owner.
func (s *ListingService) Update(
	ctx context.Context,
	actor *domainauth.Actor,
	id string,
	patch *model.ListingPatch,
) (*WriteResult, error) {
	if patch == nil {
		return nil, apperrors.Validation("patch is required")
	}
	if !actor.IsAdmin() && (patch.ModerationStatus != nil || patch.RejectionReason != nil || patch.Owner != nil) {
		return nil, apperrors.Forbidden("only admins may change moderation fields or the owner")
	}

	prev, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if prev.IsSoftDeleted() {
		return nil, apperrors.Conflict("listing is deleted; restore it first")
	}

	return s.persistUpdate(ctx, actor, prev, patch.ApplyTo(prev))
}

// Moderate sets the moderation status of a listing. Only admins may moderate.
// The rejection reason is kept only for rejected listings.
func (s *ListingService) Moderate(
	ctx context.Context,
	actor *domainauth.Actor,
	id string,
	status model.ModerationStatus,
	reason string,
) (*WriteResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("moderation requires the admin role")
	}
	if !status.Valid() {
		return nil, apperrors.ValidationField("moderationStatus", fmt.Sprintf("invalid status %q", status))
	}
	reason = strings.TrimSpace(reason)
	if status != model.ModerationRejected {
		reason = ""
	}
	return s.Update(ctx, actor, id, &model.ListingPatch{
		ModerationStatus: &status,
		RejectionReason:  &reason,
	})
}

// SoftDelete stamps deletedAt. Deleting an already deleted listing is a no-op.
func (s *ListingService) SoftDelete(ctx context.Context, actor *domainauth.Actor, id string) (*WriteResult, error) {
	return s.setDeleted(ctx, actor, id, true)
}

// Restore clears deletedAt.
func (s *ListingService) Restore(ctx context.Context, actor *domainauth.Actor, id string) (*WriteResult, error) {
	return s.setDeleted(ctx, actor, id, false)
}

func (s *ListingService) setDeleted(ctx context.Context, actor *domainauth.Actor, id string, deleted bool) (*WriteResult, error) {
	prev, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if prev.IsSoftDeleted() == deleted {
		return &WriteResult{Listing: prev}, nil
	}

	var at *time.Time
	if deleted {
		now := s.now().UTC()
		at = &now
	}
	doc, err := s.listings.SetDeletedAt(ctx, id, at)
	if err != nil {
		return nil, fmt.Errorf("set listing %s deleted=%t: %w", id, deleted, err)
	}
	s.logger.InfoContext(ctx, "listing deletion state changed", "listing_id", id, "deleted", deleted)

	results := s.pipeline.RunAfterChange(ctx, s.requestContext(actor), hooks.ChangeEvent{
		Operation: hooks.OperationUpdate,
		Doc:       doc,
		Previous:  prev,
	})
	return &WriteResult{Listing: doc, Hooks: results}, nil
}

// HardDelete permanently removes a listing after the beforeDelete phase allows it.
func (s *ListingService) HardDelete(ctx context.Context, actor *domainauth.Actor, id string) error {
	if !actor.IsAdmin() {
		l, err := s.listings.GetByID(ctx, id)
		if err == nil && !ownsListing(actor, l) {
			return apperrors.Forbidden("listing belongs to another profile")
		}
		if apperrors.IsNotFound(err) {
			return err
		}
	}

	if err := s.pipeline.RunBeforeDelete(ctx, s.requestContext(actor), id); err != nil {
		if errors.Is(err, moderation.ErrHardDeleteNotAllowed) {
			return apperrors.Wrap(err, apperrors.ErrCodeConflict, err.Error())
		}
		return err
	}

	ok, err := s.listings.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	if !ok {
		return apperrors.NotFoundf("listing %s not found", id)
	}
	s.logger.InfoContext(ctx, "listing hard deleted", "listing_id", id, "admin", actor.IsAdmin())
	return nil
}

// Get returns a listing. Soft deleted listings are visible to their owner and admins only.
func (s *ListingService) Get(ctx context.Context, actor *domainauth.Actor, id string) (*model.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	if l.IsSoftDeleted() && !actor.IsAdmin() && !ownsListing(actor, l) {
		return nil, apperrors.NotFoundf("listing %s not found", id)
	}
	return l, nil
}

// List returns listings matching filter. Non-admins only see deleted
// listings of their own profile.
func (s *ListingService) List(ctx context.Context, actor *domainauth.Actor, filter model.ListingFilter) ([]*model.Listing, error) {
	if filter.Collection != "" && !filter.Collection.Valid() {
		return nil, apperrors.ValidationField("collection", fmt.Sprintf("unknown collection %q", filter.Collection))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status %q", filter.Status))
	}
	if filter.IncludeDeleted && !actor.IsAdmin() {
		if !actor.HasProfile() || filter.OwnerID != actor.ProfileID {
			filter.IncludeDeleted = false
		}
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	out, err := s.listings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

// loadForWrite fetches a listing and checks the actor may modify it.
func (s *ListingService) loadForWrite(ctx context.Context, actor *domainauth.Actor, id string) (*model.Listing, error) {
	if actor == nil {
		return nil, apperrors.Forbidden("authentication required")
	}
	prev, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	if !actor.IsAdmin() && !ownsListing(actor, prev) {
		return nil, apperrors.Forbidden("listing belongs to another profile")
	}
	return prev, nil
}

func (s *ListingService) persistUpdate(
	ctx context.Context,
	actor *domainauth.Actor,
	prev, merged *model.Listing,
) (*WriteResult, error) {
	rc := s.requestContext(actor)
	doc, err := s.pipeline.RunBeforeValidate(ctx, rc, hooks.OperationUpdate, merged)
	if err != nil {
		return nil, err
	}
	if err := validateListing(doc); err != nil {
		return nil, err
	}

	updated, err := s.listings.Update(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("update listing %s: %w", prev.ID, err)
	}
	if updated.ModerationStatus != prev.ModerationStatus {
		s.logger.InfoContext(ctx, "listing moderation status changed",
			"listing_id", updated.ID,
			"from", prev.ModerationStatus,
			"to", updated.ModerationStatus,
		)
	}

	results := s.pipeline.RunAfterChange(ctx, rc, hooks.ChangeEvent{
		Operation: hooks.OperationUpdate,
		Doc:       updated,
		Previous:  prev,
	})
	return &WriteResult{Listing: updated, Hooks: results}, nil
}

func ownsListing(actor *domainauth.Actor, l *model.Listing) bool {
	return actor.HasProfile() && l != nil && model.ResolveID(l.Owner) == actor.ProfileID
}

func validateListing(l *model.Listing) error {
	if strings.TrimSpace(l.Title) == "" {
		return apperrors.ValidationField("title", "title is required")
	}
	if strings.TrimSpace(l.Slug) == "" {
		return apperrors.ValidationField("slug", "slug is required")
	}
	if !l.Collection.Valid() {
		return apperrors.ValidationField("collection", fmt.Sprintf("unknown collection %q", l.Collection))
	}
	if !l.ModerationStatus.Valid() {
		return apperrors.ValidationField("moderationStatus", fmt.Sprintf("invalid status %q", l.ModerationStatus))
	}
	if l.ClaimStatus != "" && !l.ClaimStatus.Valid() {
		return apperrors.ValidationField("claimStatus", fmt.Sprintf("invalid claim status %q", l.ClaimStatus))
	}
	return nil
}
