package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/unevent/unevent-api/config"
)

const defaultStopTimeout = 15 * time.Second

// ServiceOrchestrationConfig is what RunServicesWithShutdown needs to start
// the services selected by SERVICES.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// worker is one long-running piece of the process. run must return once its
// context is cancelled.
type worker struct {
	mode config.ServiceMode
	name string
	run  func(context.Context) error
}

func (o *ServiceOrchestrationConfig) workers(logger *slog.Logger, grace time.Duration) []worker {
	if o == nil || o.Config == nil {
		return nil
	}
	app, svcs := o.Config, o.Services

	return []worker{
		{
			mode: config.ServiceModeHTTP,
			name: "http server",
			run: func(ctx context.Context) error {
				srv := NewHTTPServer(&HTTPServerConfig{Config: app, Services: svcs, Logger: logger})
				return serveHTTP(ctx, srv, logger, grace)
			},
		},
		{
			mode: config.ServiceModeNotificationRunner,
			name: "notification runner",
			run: func(ctx context.Context) error {
				return RunNotificationRunner(ctx, NotificationRunnerConfig{
					Jobs:        svcs.Jobs,
					Mailer:      app.Mailer,
					Alerts:      app.Alerts,
					Lease:       app.NotificationRunner.JobLease,
					Concurrency: app.NotificationRunner.Concurrency,
					Logger:      logger,
					Metrics:     svcs.Metrics,
				})
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			run: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					DB:        o.DB,
					Logger:    logger,
					Config:    app.Reaper,
					Retention: app.Moderation.HardDeleteRetention,
					Metrics:   svcs.Metrics,
				})
			},
		},
	}
}

func selectWorkers(all []worker, enabled map[config.ServiceMode]bool) []worker {
	var out []worker
	for _, w := range all {
		if enabled[w.mode] {
			out = append(out, w)
		}
	}
	return out
}

// RunServicesWithShutdown blocks until SIGINT or SIGTERM arrives, ctx ends, or
// one of the enabled services fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	grace := cfg.Config.HTTP.ShutdownTimeout
	if grace <= 0 {
		grace = defaultStopTimeout
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = supervise(ctx, logger, grace, selectWorkers(cfg.workers(logger, grace), enabled))

	// workers are gone, so the LISTEN connections can go too
	if cfg.Services.Jobs != nil {
		cfg.Services.Jobs.StopAllListeners()
	}
	return err
}

// supervise runs every worker until ctx ends or one of them fails, then gives
// the rest grace to return.
func supervise(ctx context.Context, logger *slog.Logger, grace time.Duration, workers []worker) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", w.name, "mode", w.mode)
			err := w.run(gctx)
			if errors.Is(err, context.Canceled) && gctx.Err() != nil {
				err = nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", w.name, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", w.name)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-gctx.Done():
	}

	if ctx.Err() != nil {
		logger.Info("shutting down services", "grace", grace)
	} else {
		logger.Error("service failed, stopping the rest")
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("services still running after %s", grace)
	}
}
