// Package jobrunner leases queued jobs and executes them with registered handlers.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unevent/unevent-api/internal/domain/model"
	obserrors "github.com/unevent/unevent-api/internal/observability/errors"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
	"github.com/unevent/unevent-api/internal/service"
)

const (
	defaultLease             = 30 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
)

// HandlerFunc executes one attempt. An error fails the attempt and the store
// schedules a retry while the job has retries left.
type HandlerFunc func(ctx context.Context, job *model.Job) error

type RunnerOptions struct {
	Jobs *service.JobService
	// Mailer and Renderer are required for notification jobs.
	Mailer   ports.Mailer
	Renderer Renderer
	Failures FailureNotifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// Lease defaults to 30s, Concurrency to 1 and JobType to notification.
	Lease       time.Duration
	Concurrency int
	JobType     model.JobType
}

// Runner works one job type with a fixed number of workers.
type Runner struct {
	jobs     *service.JobService
	failures FailureNotifier
	log      *slog.Logger
	metrics  *metrics.Metrics
	lease    time.Duration
	jobType  model.JobType
	workers  int
	handlers map[model.JobType]HandlerFunc
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job service is required")
	}
	jt := opts.JobType
	if !jt.Valid() {
		jt = model.JobTypeNotification
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	component := "job_runner"
	if jt == model.JobTypeNotification {
		component = "notification_runner"
	}

	r := &Runner{
		jobs:     opts.Jobs,
		failures: opts.Failures,
		log:      log.With("component", component),
		metrics:  opts.Metrics,
		lease:    opts.Lease,
		jobType:  jt,
		workers:  max(opts.Concurrency, 1),
		handlers: map[model.JobType]HandlerFunc{},
	}
	if r.lease <= 0 {
		r.lease = defaultLease
	}

	if opts.Mailer != nil && opts.Renderer != nil {
		r.handlers[model.JobTypeNotification] = deliverNotification(opts.Renderer, opts.Mailer, r.log)
	}
	if _, ok := r.handlers[jt]; !ok && jt == model.JobTypeNotification {
		return nil, errors.New("mailer and renderer are required for notification jobs")
	}
	return r, nil
}

// Run blocks until ctx ends. An unexpected store error from any worker stops
// the others and is returned.
func (r *Runner) Run(ctx context.Context) error {
	r.log.InfoContext(ctx, "starting job runner", "type", r.jobType, "workers", r.workers, "lease", r.lease)

	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		wake, unsubscribe := r.jobs.Subscribe(r.jobType)
		g.Go(func() error {
			defer unsubscribe()
			return r.work(ctx, wake)
		})
	}
	return g.Wait()
}

// work drains the queue, then sleeps until woken. It returns nil once ctx
// ends or the wake channel closes.
func (r *Runner) work(ctx context.Context, wake <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, r.jobType, r.lease)
		switch {
		case err == nil:
			r.process(ctx, job)
			continue
		case ctx.Err() != nil:
			return nil
		case !errors.Is(err, model.ErrNoJobsAvailable):
			return fmt.Errorf("reserve next: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case _, open := <-wake:
			if !open {
				return nil
			}
		}
	}
	return nil
}

func (r *Runner) process(ctx context.Context, job *model.Job) {
	start := time.Now()
	record := func(transition, result string, err error) {
		r.metrics.JobLifecycle(metrics.JobMetric{
			JobType:    string(job.Type),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	err := r.attempt(ctx, job)
	if err != nil {
		r.fail(ctx, job, err)
		record("failed", metrics.ResultError, err)
		return
	}

	completed, err := r.jobs.Complete(ctx, job.ID)
	switch {
	case err != nil:
		r.log.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
		record("completed", metrics.ResultError, err)
	case completed:
		record("completed", metrics.ResultSuccess, nil)
	default:
		record("completed", metrics.ResultNoop, nil)
	}
}

// attempt runs the handler while a heartbeat keeps the lease alive.
func (r *Runner) attempt(ctx context.Context, job *model.Job) error {
	h, ok := r.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler for job type %s", job.Type)
	}
	hbCtx, stop := context.WithCancel(ctx)
	defer stop()
	go r.heartbeat(hbCtx, job.ID)
	return h(ctx, job)
}

// heartbeat renews the lease every half lease until ctx ends.
func (r *Runner) heartbeat(ctx context.Context, jobID string) {
	every := r.lease / 2
	if every <= 0 {
		every = defaultHeartbeatInterval
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		ok, err := r.jobs.Heartbeat(ctx, jobID, r.lease)
		switch {
		case err != nil && ctx.Err() == nil:
			r.log.ErrorContext(ctx, "heartbeat failed", "job_id", jobID, "error", err)
		case err == nil && !ok:
			r.log.WarnContext(ctx, "heartbeat not applied, job may be lost", "job_id", jobID)
		}
	}
}

func (r *Runner) fail(ctx context.Context, job *model.Job, cause error) {
	r.log.WarnContext(ctx, "job attempt failed",
		"job_id", job.ID,
		"attempt", job.Attempt(),
		"max_retries", job.MaxRetries,
		"error_class", obserrors.Classify(cause),
		"error", cause,
	)
	applied, err := r.jobs.Fail(ctx, job.ID, cause.Error())
	if err != nil {
		r.log.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", err, "original_error", cause)
		return
	}
	if applied && job.FinalAttempt() && r.failures != nil {
		r.failures.NotifyDeliveryFailure(context.WithoutCancel(ctx), exhausted(job, cause))
	}
}
