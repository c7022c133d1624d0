package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

// NotificationServiceOptions groups dependencies for NotificationService.
type NotificationServiceOptions struct {
	Jobs       core.JobRepository // Required: job queue
	MaxRetries int                // Optional: delivery attempts per notification (default 5)
	Metrics    *metrics.Metrics   // Optional
	Logger     *slog.Logger       // Optional
}

// NotificationService puts notification payloads on the job queue. Delivery
// happens asynchronously in the notification runner.
type NotificationService struct {
	jobs       core.JobRepository
	maxRetries int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

const defaultNotificationRetries = 5

// NewNotificationService constructs a NotificationService.
func NewNotificationService(opts NotificationServiceOptions) (*NotificationService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultNotificationRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		jobs:       opts.Jobs,
		maxRetries: retries,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "notification_service"),
	}, nil
}

// Enqueue validates n and inserts one notification job for all of its
// recipients. It returns the job id.
func (s *NotificationService) Enqueue(ctx context.Context, n model.NotificationPayload) (string, error) {
	id, err := s.enqueue(ctx, n)
	s.metrics.NotificationEnqueued(string(n.Event), err)
	return id, err
}

func (s *NotificationService) enqueue(ctx context.Context, n model.NotificationPayload) (string, error) {
	if err := n.Validate(); err != nil {
		return "", fmt.Errorf("invalid notification: %w", err)
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	job, err := s.jobs.Create(ctx, &model.CreateJobRequest{
		Type:       model.JobTypeNotification,
		Payload:    raw,
		MaxRetries: s.maxRetries,
	})
	if err != nil {
		return "", fmt.Errorf("create notification job: %w", err)
	}
	s.logger.DebugContext(ctx, "notification job created",
		"job_id", job.ID,
		"event_type", n.Event,
		"recipients", len(n.To),
	)
	return job.ID, nil
}
