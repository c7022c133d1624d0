package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/unevent/unevent-api/internal/data/pgxutil"
	"github.com/unevent/unevent-api/internal/domain/model"
)

const defaultMaxRetries = 5

var errLease = errors.New("leaseSeconds must be positive")

// notifyChannel is the LISTEN/NOTIFY channel for one job type.
func notifyChannel(t model.JobType) string { return "job_added_" + string(t) }

func collectJob(rows pgx.Rows) (*model.Job, error) {
	return pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (*model.Job, error) {
		return scanJob(row)
	})
}

const insertJobSQL = `
INSERT INTO jobs (type, status, payload, scheduled_at, max_retries)
VALUES ($1, 'pending', $2, $3, $4)
RETURNING ` + jobColumns

// Create inserts a pending job. The NOTIFY is sent in the same transaction so
// listeners only wake for committed rows.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !json.Valid(req.Payload) {
		return nil, errors.New("payload must be valid JSON")
	}

	scheduled := r.timeProvider.Now().UTC()
	if req.ScheduledAt != nil {
		scheduled = req.ScheduledAt.UTC()
	}
	retries := req.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, insertJobSQL, req.Type, []byte(req.Payload), scheduled, retries)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		if job, err = collectJob(rows); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		if _, err = tx.Exec(ctx, "SELECT pg_notify($1::text, $2::text)", notifyChannel(req.Type), job.ID); err != nil {
			return fmt.Errorf("notify job: %w", err)
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Oldest due job first; SKIP LOCKED lets workers reserve concurrently.
const reserveSQL = `
UPDATE jobs j
   SET status = 'running',
       started_at = COALESCE(j.started_at, $2),
       lease_expires_at = $3,
       updated_at = $2
  FROM (SELECT id FROM jobs
         WHERE type = $1 AND status = 'pending' AND scheduled_at <= $2
         ORDER BY scheduled_at, created_at
         LIMIT 1
         FOR UPDATE SKIP LOCKED) next
 WHERE j.id = next.id
RETURNING j.id, j.type, j.status, j.payload, j.scheduled_at, j.started_at, j.completed_at,
          j.retry_count, j.max_retries, j.last_error, j.lease_expires_at, j.created_at, j.updated_at`

const requeueSQL = `
UPDATE jobs
   SET status = 'pending', lease_expires_at = NULL, updated_at = $2
 WHERE type = $1 AND status = 'running' AND lease_expires_at < $2`

// ReserveNext first returns lapsed leases of jobType to pending, then leases
// the next due job for leaseSeconds. Nothing due gives model.ErrNoJobsAvailable.
func (r *JobRepo) ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if leaseSeconds <= 0 {
		return nil, errLease
	}

	now := r.timeProvider.Now().UTC()
	requeued, err := execLocked(ctx, r.DB, requeueLock(string(jobType)), requeueSQL, jobType, now)
	if err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}
	if requeued > 0 {
		r.logger.InfoContext(ctx, "requeued expired jobs", "job_type", jobType, "count", requeued)
	}

	var job *model.Job
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, reserveSQL, jobType, now, now.Add(time.Duration(leaseSeconds)*time.Second))
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			var cerr error
			job, cerr = collectJob(rows)
			switch {
			case errors.Is(cerr, pgx.ErrNoRows):
				return model.ErrNoJobsAvailable
			case cerr != nil:
				return fmt.Errorf("reserve job: %w", cerr)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// updateRunning applies query to a running job and reports whether one
// matched. A malformed id is treated as no match.
func (r *JobRepo) updateRunning(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if isInvalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s job: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n > 0, nil
}

// Heartbeat extends the lease of a running job.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errLease
	}
	now := r.timeProvider.Now().UTC()
	return r.updateRunning(ctx, "heartbeat", `
UPDATE jobs SET lease_expires_at = $2, updated_at = $3
 WHERE id = $1 AND status = 'running'`,
		jobID, now.Add(time.Duration(leaseSeconds)*time.Second), now)
}

func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	return r.updateRunning(ctx, "complete", `
UPDATE jobs
   SET status = 'completed', completed_at = $2, updated_at = $2,
       lease_expires_at = NULL, last_error = NULL
 WHERE id = $1 AND status = 'running'`,
		id, r.timeProvider.Now().UTC())
}

// The subquery decides once whether this failure is the last allowed one.
const failSQL = `
UPDATE jobs j
   SET last_error = $2,
       retry_count = j.retry_count + 1,
       status = CASE WHEN a.final THEN 'failed' ELSE 'pending' END,
       completed_at = CASE WHEN a.final THEN $3::timestamptz END,
       scheduled_at = CASE WHEN a.final THEN j.scheduled_at ELSE $4::timestamptz END,
       lease_expires_at = NULL,
       updated_at = $3
  FROM (SELECT id, retry_count + 1 >= max_retries AS final
          FROM jobs WHERE id = $1 AND status = 'running') a
 WHERE j.id = a.id
RETURNING a.final`

// Fail records errMsg on a running job. It goes back to pending after the
// retry delay until its attempts reach max_retries, and then it is failed.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	var final bool
	err := r.DB.QueryRowContext(ctx, failSQL, id, errMsg, now, now.Add(r.retryDelay)).Scan(&final)
	switch {
	case errors.Is(err, sql.ErrNoRows), isInvalidID(err):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("fail job: %w", err)
	}
	if final {
		r.logger.WarnContext(ctx, "job exhausted retries", "job_id", id, "error", errMsg)
	}
	return true, nil
}

func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
SELECT count(*) FILTER (WHERE status = 'pending'),
       count(*) FILTER (WHERE status = 'running'),
       count(*) FILTER (WHERE status = 'completed'),
       count(*) FILTER (WHERE status = 'failed')
  FROM jobs WHERE type = $1`, jobType).Scan(&s.Pending, &s.Running, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a job of jobType is created or ctx ends.
func (r *JobRepo) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	ch := pgx.Identifier{notifyChannel(jobType)}.Sanitize()
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
		defer func() { _, _ = conn.Exec(context.WithoutCancel(ctx), "UNLISTEN "+ch) }()
		_, err := conn.WaitForNotification(ctx)
		return err
	})
}

func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := scanJob(r.DB.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = $1", id))
	switch {
	case errors.Is(err, sql.ErrNoRows), isInvalidID(err):
		return nil, notFound(ErrJobNotFound)
	case err != nil:
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}
