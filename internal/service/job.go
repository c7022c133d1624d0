package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/domain/queue"
)

type JobServiceOptions struct {
	Repo         core.JobRepository
	DefaultLease time.Duration
	Logger       *slog.Logger
	// Wakeups replaces the LISTEN based wake-ups built from WakeupOpts.
	Wakeups    *queue.Wakeups
	WakeupOpts queue.WakeupOptions
}

// JobService is the worker-facing view of the queue. Lease durations are
// converted to whole seconds within the lease policy bounds before they
// reach the store.
type JobService struct {
	repo    core.JobRepository
	lease   *queue.LeasePolicy
	wakeups *queue.Wakeups
	log     *slog.Logger
}

func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	lease, err := queue.NewLeasePolicy(opts.DefaultLease)
	if err != nil {
		return nil, fmt.Errorf("create lease policy: %w", err)
	}

	s := &JobService{repo: opts.Repo, lease: lease, wakeups: opts.Wakeups, log: opts.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "job_service")

	if s.wakeups == nil {
		wo := opts.WakeupOpts
		if wo.Waiter == nil {
			wo.Waiter = opts.Repo
		}
		if s.wakeups, err = queue.NewWakeups(wo); err != nil {
			return nil, fmt.Errorf("create job wakeups: %w", err)
		}
	}
	return s, nil
}

func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // startup wiring
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.DebugContext(ctx, "job created", "id", job.ID, "type", job.Type)
	return job, nil
}

// ReserveNext returns model.ErrNoJobsAvailable (wrapped) on an empty queue.
func (s *JobService) ReserveNext(ctx context.Context, jobType model.JobType, lease time.Duration) (*model.Job, error) {
	secs := s.leaseSeconds(ctx, lease)
	job, err := s.repo.ReserveNext(ctx, jobType, secs)
	if err != nil {
		return nil, fmt.Errorf("reserve next job: %w", err)
	}
	s.log.DebugContext(ctx, "job reserved", "id", job.ID, "type", jobType, "lease_seconds", secs)
	return job, nil
}

func (s *JobService) leaseSeconds(ctx context.Context, d time.Duration) int {
	secs, clamped := s.lease.Seconds(d)
	if clamped {
		s.log.DebugContext(ctx, "lease clamped", "requested", d, "seconds", secs)
	}
	return secs
}

// Subscribe signals the returned channel when jobs of jobType may be ready.
// The func unsubscribes and may be called more than once.
func (s *JobService) Subscribe(jobType model.JobType) (<-chan struct{}, func()) {
	return s.wakeups.Subscribe(jobType)
}

func (s *JobService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	ok, err := s.repo.Heartbeat(ctx, id, s.leaseSeconds(ctx, extend))
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return ok, nil
}

// Complete reports false when the job was no longer running.
func (s *JobService) Complete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}
	if ok {
		s.log.DebugContext(ctx, "job completed", "id", id)
	}
	return ok, nil
}

// Fail records a failed attempt; the store puts the job back on the queue
// until it runs out of retries.
func (s *JobService) Fail(ctx context.Context, id, reason string) (bool, error) {
	if reason == "" {
		return false, errors.New("error message required")
	}
	ok, err := s.repo.Fail(ctx, id, reason)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}
	if ok {
		s.log.DebugContext(ctx, "job failed", "id", id, "error", reason)
	}
	return ok, nil
}

func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *JobService) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("job stats %s: %w", jobType, err)
	}
	return stats, nil
}

// StopAllListeners closes every wake-up subscription. Call once workers are gone.
func (s *JobService) StopAllListeners() {
	s.log.Info("stopping job listeners")
	s.wakeups.Close()
}
