package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/testutil"
)

func TestJobRepo_FailStalePendingJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		stale, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `UPDATE jobs SET created_at = $1 WHERE id = $2`, time.Now().Add(-2*time.Hour), stale.ID)
		require.NoError(t, err)

		fresh, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		n, err := repo.FailStalePendingJobs(ctx, time.Hour, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "Job timed out in pending status", *got.LastError)

		got, err = repo.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)

		_, err = repo.FailStalePendingJobs(ctx, time.Hour, 0)
		require.Error(t, err)
	})
}

func TestJobRepo_DeleteOldJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		var ids []string
		for range 3 {
			j, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
			ids = append(ids, j.ID)
		}
		_, err := db.ExecContext(ctx, `
			UPDATE jobs SET status = 'completed', completed_at = $1 WHERE id::text = ANY($2::text[])
		`, time.Now().Add(-48*time.Hour), ids[:2])
		require.NoError(t, err)

		params := core.DeleteOldJobsParams{Status: model.JobStatusCompleted, MaxAge: 24 * time.Hour, BatchSize: 1}
		n, err := repo.DeleteOldJobs(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "batch size bounds each call")

		n, err = repo.DeleteOldJobs(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.DeleteOldJobs(ctx, params)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = repo.GetByID(ctx, ids[2])
		require.NoError(t, err, "pending job survives")

		_, err = repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{Status: "bogus", BatchSize: 1})
		require.Error(t, err)
	})
}
