package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/adapters/jobrunner"
	"github.com/unevent/unevent-api/internal/adapters/mailer"
	"github.com/unevent/unevent-api/internal/adapters/reaper"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/observability/notify/pagerduty"
	"github.com/unevent/unevent-api/internal/observability/notify/slack"
	"github.com/unevent/unevent-api/internal/service"
	"github.com/unevent/unevent-api/internal/service/failurenotifier"
)

// NotificationRunnerConfig contains configuration for the notification runner.
type NotificationRunnerConfig struct {
	Jobs        *service.JobService
	Mailer      config.MailerConfig
	Alerts      config.AlertsConfig
	Lease       time.Duration
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewMailer builds the mail client from config.
func NewMailer(cfg config.MailerConfig, logger *slog.Logger, m *metrics.Metrics) (*mailer.Client, error) {
	client, err := mailer.NewClient(mailer.Config{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		From:       cfg.From,
		ReplyTo:    cfg.ReplyTo,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
		DryRun:     cfg.DryRun,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return nil, fmt.Errorf("create mailer: %w", err)
	}
	return client, nil
}

// RunNotificationRunner leases notification jobs and delivers them by email
// until ctx is cancelled.
func RunNotificationRunner(ctx context.Context, cfg NotificationRunnerConfig) error {
	if cfg.Jobs == nil {
		return errors.New("job service is required")
	}
	if cfg.Mailer.DryRun && cfg.Logger != nil {
		cfg.Logger.WarnContext(ctx, "mailer in dry-run mode; notifications are logged, not sent")
	}

	client, err := NewMailer(cfg.Mailer, cfg.Logger, cfg.Metrics)
	if err != nil {
		return err
	}

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Jobs:        cfg.Jobs,
		Mailer:      client,
		Renderer:    mailer.MustNewRegistry(),
		Failures:    NewFailureNotifier(cfg.Alerts, cfg.Logger),
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
		Lease:       cfg.Lease,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("create notification runner: %w", err)
	}

	return runner.Run(ctx)
}

// NewFailureNotifier builds the ops alert fan-out from config. Sinks that fail
// to build are logged and skipped.
func NewFailureNotifier(cfg config.AlertsConfig, logger *slog.Logger) *failurenotifier.Service {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []failurenotifier.SinkRegistration

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("slack alerts disabled", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("pagerduty alerts disabled", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{Logger: logger, Sinks: sinks})
}

// ReaperConfig contains configuration for the reaper.
type ReaperConfig struct {
	DB        *sql.DB
	Logger    *slog.Logger
	Config    config.ReaperConfig
	Retention time.Duration
	Metrics   *metrics.Metrics
}

func newReaperRunner(cfg ReaperConfig) (*reaper.Runner, error) {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:        cfg.DB,
		Config:    cfg.Config,
		Retention: cfg.Retention,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create reaper runner: %w", err)
	}
	return runner, nil
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := newReaperRunner(cfg)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// RunReaperOnce performs a single cleanup pass.
func RunReaperOnce(ctx context.Context, cfg ReaperConfig) error {
	runner, err := newReaperRunner(cfg)
	if err != nil {
		return err
	}
	return runner.RunOnce(ctx)
}
