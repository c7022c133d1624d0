package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unevent/unevent-api/internal/bootstrap"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

type purgeOptions struct {
	Timeout   time.Duration
	Retention time.Duration
	Listings  bool
}

// runPurge performs the same pass the reaper service runs on its interval.
func runPurge(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeFlags(args, cmdCtx.Config.Moderation.HardDeleteRetention, cmdCtx.Config.Reaper.PurgeListings)
	if err != nil {
		return err
	}

	reaperCfg := cmdCtx.Config.Reaper
	reaperCfg.PurgeListings = opts.Listings

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running reaper pass",
			"purge_listings", opts.Listings,
			"retention", opts.Retention.String(),
		)
		if runErr := bootstrap.RunReaperOnce(ctx, bootstrap.ReaperConfig{
			DB:        db,
			Logger:    cmdCtx.Logger,
			Config:    reaperCfg,
			Retention: opts.Retention,
			Metrics:   metrics.Default(),
		}); runErr != nil {
			return fmt.Errorf("reaper pass: %w", runErr)
		}
		cmdCtx.Logger.Info("reaper pass completed")
		return nil
	})
}

func parsePurgeFlags(args []string, retention time.Duration, listings bool) (purgeOptions, error) {
	opts := purgeOptions{}
	f := newCmdFlags("purge", defaultMigrationTimeout, "Maximum duration for the cleanup pass")
	f.DurationVar(&opts.Retention, "retention", retention, "Purge listings soft-deleted longer ago than this")
	f.BoolVar(&opts.Listings, "listings", listings, "Also purge soft-deleted listings past retention")

	timeout, err := f.parse(args)
	if err != nil {
		return purgeOptions{}, err
	}
	if opts.Listings && opts.Retention <= 0 {
		return purgeOptions{}, errors.New("--retention must be greater than zero")
	}
	opts.Timeout = timeout
	return opts, nil
}
