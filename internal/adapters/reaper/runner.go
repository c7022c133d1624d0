// Package reaper wires the cleanup service to the Postgres repositories.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/data"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/service"
)

// Runner runs the reaper loop against the database.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB        *sql.DB
	Config    config.ReaperConfig
	Retention time.Duration // soft delete retention before listings are purged
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// Optional overrides, used in tests.
	Repo     core.ReaperRepository
	Listings core.ListingRepository
	Media    core.MediaRepository
}

// NewRunner creates a reaper runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}
	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && (opts.Repo == nil || opts.Listings == nil || opts.Media == nil) {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}
	listings := opts.Listings
	if listings == nil {
		listings = data.NewListingRepo(opts.DB, data.ListingRepoOptions{Logger: opts.Logger})
	}
	media := opts.Media
	if media == nil {
		media = data.NewMediaRepo(opts.DB, nil)
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Repo:      repo,
		Listings:  listings,
		Media:     media,
		Config:    opts.Config,
		Retention: opts.Retention,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
}

// Run starts the reaper loop and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// RunOnce performs a single cleanup pass.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.reaper.RunOnce(ctx)
}
