package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unevent/unevent-api/internal/core"
)

var errBatchSize = errors.New("batch size must be greater than zero")

const failStalePendingSQL = `
UPDATE jobs
   SET status = 'failed', last_error = 'Job timed out in pending status',
       completed_at = $1, updated_at = $1
 WHERE id IN (SELECT id FROM jobs
               WHERE status = 'pending' AND created_at < $2
               ORDER BY created_at LIMIT $3)`

// A job that never completed is aged by its last update.
const deleteOldJobsSQL = `
DELETE FROM jobs
 WHERE id IN (SELECT id FROM jobs
               WHERE status = $1 AND COALESCE(completed_at, updated_at) < $2
               ORDER BY COALESCE(completed_at, updated_at) LIMIT $3)`

// FailStalePendingJobs fails up to batchSize pending jobs created more than
// maxAge ago.
func (r *JobRepo) FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errBatchSize
	}
	now := r.timeProvider.Now().UTC()
	n, err := execLocked(ctx, r.DB, lockFailPending, failStalePendingSQL, now, now.Add(-maxAge), batchSize)
	if err != nil {
		return 0, fmt.Errorf("fail stale pending jobs: %w", err)
	}
	return n, nil
}

// DeleteOldJobs removes up to BatchSize jobs in Status finished before MaxAge.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, p core.DeleteOldJobsParams) (int64, error) {
	switch {
	case !p.Status.Valid():
		return 0, fmt.Errorf("invalid job status: %s", p.Status)
	case p.BatchSize <= 0:
		return 0, errBatchSize
	}
	cutoff := r.timeProvider.Now().UTC().Add(-p.MaxAge)
	n, err := execLocked(ctx, r.DB, lockDeleteJobs, deleteOldJobsSQL, p.Status, cutoff, p.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	return n, nil
}
