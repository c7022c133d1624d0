package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo      core.ReaperRepository  // Required: job queue maintenance
	Listings  core.ListingRepository // Optional: enables the soft deleted listing purge
	Media     core.MediaRepository   // Optional: enables the temporary media GC
	Config    config.ReaperConfig    // Required: reaper configuration
	Retention time.Duration          // Required with Listings: soft delete retention window
	Logger    *slog.Logger           // Optional: structured logger
	Metrics   *metrics.Metrics       // Optional
	Now       func() time.Time       // Optional: clock override
}

// ReaperService removes stale rows on an interval:
// - pending jobs that were never picked up are failed;
// - completed and failed jobs past their max age are deleted;
// - listings soft deleted before the retention window are purged;
// - temporary media that no listing adopted is deleted.
type ReaperService struct {
	repo      core.ReaperRepository
	listings  core.ListingRepository
	media     core.MediaRepository
	config    config.ReaperConfig
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Reaper step names used in logs and metrics.
const (
	StepFailPending     = "fail_pending"
	StepDeleteCompleted = "delete_completed"
	StepDeleteFailed    = "delete_failed"
	StepPurgeListings   = "purge_listings"
	StepTempMedia       = "delete_temp_media"
)

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	if opts.Listings != nil && opts.Config.PurgeListings && opts.Retention <= 0 {
		return nil, errors.New("retention is required to purge listings")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"pending_max_age", opts.Config.PendingMaxAge,
		"completed_max_age", opts.Config.CompletedMaxAge,
		"failed_max_age", opts.Config.FailedMaxAge,
		"temp_media_ttl", opts.Config.TempMediaTTL,
		"retention", opts.Retention,
	)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &ReaperService{
		repo:      opts.Repo,
		listings:  opts.Listings,
		media:     opts.Media,
		config:    opts.Config,
		retention: opts.Retention,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(ctx, err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(ctx, err, "cleanup")
			}
		}
	}
}

// waitWithJitter sleeps a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

type cleanupStep struct {
	name  string
	label string
	fn    func(context.Context) (int64, error)
}

func (s *ReaperService) steps() []cleanupStep {
	steps := []cleanupStep{
		{StepFailPending, "fail stale pending jobs", s.failStalePendingJobs},
		{StepDeleteCompleted, "delete old completed jobs", s.deleteOldJobs(model.JobStatusCompleted, s.config.CompletedMaxAge)},
		{StepDeleteFailed, "delete old failed jobs", s.deleteOldJobs(model.JobStatusFailed, s.config.FailedMaxAge)},
	}
	if s.listings != nil && s.config.PurgeListings {
		steps = append(steps, cleanupStep{StepPurgeListings, "purge soft deleted listings", s.purgeListings})
	}
	if s.media != nil {
		steps = append(steps, cleanupStep{StepTempMedia, "delete temporary media", s.deleteTemporaryMedia})
	}
	return steps
}

// RunOnce performs every cleanup step once. Steps are independent: a failing
// step does not stop the others.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := s.now()
	var (
		errs        []error
		allCanceled = true
		total       int64
	)

	for _, step := range s.steps() {
		count, err := step.fn(ctx)
		total += count
		s.metrics.ReaperRows(step.name, count)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.label, err))
			allCanceled = allCanceled && isContextCancellation(err)
			if !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "reaper step failed", "step", step.name, "error", err)
			}
		}
	}

	s.logger.DebugContext(ctx, "reaper cleanup finished",
		"rows", total,
		"elapsed", s.now().Sub(start),
	)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allCanceled {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}
	return nil
}

// drain repeats a batched statement until it affects no rows.
func drain(ctx context.Context, batch func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := batch(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) failStalePendingJobs(ctx context.Context) (int64, error) {
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.FailStalePendingJobs(ctx, s.config.PendingMaxAge, s.config.BatchSize)
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "failed stale pending jobs", "count", n, "max_age", s.config.PendingMaxAge)
	}
	return n, err
}

func (s *ReaperService) deleteOldJobs(status model.JobStatus, maxAge time.Duration) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		n, err := drain(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
		})
		if n > 0 {
			s.logger.InfoContext(ctx, "deleted old jobs", "status", status, "count", n, "max_age", maxAge)
		}
		return n, err
	}
}

func (s *ReaperService) purgeListings(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.listings.PurgeSoftDeleted(ctx, core.PurgeSoftDeletedParams{
			DeletedBefore: cutoff,
			BatchSize:     s.config.BatchSize,
		})
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "purged soft deleted listings", "count", n, "deleted_before", cutoff)
	}
	return n, err
}

func (s *ReaperService) deleteTemporaryMedia(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.TempMediaTTL)
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.media.DeleteTemporaryOlderThan(ctx, cutoff, s.config.BatchSize)
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "deleted temporary media", "count", n, "created_before", cutoff)
	}
	return n, err
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
