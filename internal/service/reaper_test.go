package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/mocks"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        5 * time.Minute,
		PendingMaxAge:   time.Hour,
		CompletedMaxAge: 7 * 24 * time.Hour,
		FailedMaxAge:    30 * 24 * time.Hour,
		TempMediaTTL:    24 * time.Hour,
		PurgeListings:   true,
		BatchSize:       100,
	}
}

type reaperFixture struct {
	repo     *mocks.MockReaperRepository
	listings *mocks.MockListingRepository
	media    *mocks.MockMediaRepository
	now      time.Time
	svc      *ReaperService
}

func newReaperFixture(t *testing.T) *reaperFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &reaperFixture{
		repo:     mocks.NewMockReaperRepository(ctrl),
		listings: mocks.NewMockListingRepository(ctrl),
		media:    mocks.NewMockMediaRepository(ctrl),
		now:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:      f.repo,
		Listings:  f.listings,
		Media:     f.media,
		Config:    testReaperConfig(),
		Retention: 4380 * time.Hour,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.MustNew(prometheus.NewRegistry()),
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewReaperService(t *testing.T) {
	t.Parallel()
	_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewReaperService(ReaperServiceOptions{
		Repo:     mocks.NewMockReaperRepository(ctrl),
		Listings: mocks.NewMockListingRepository(ctrl),
		Config:   testReaperConfig(),
	})
	require.Error(t, err, "purging listings needs a retention window")
}

func TestReaperService_RunOnce_AllSteps(t *testing.T) {
	t.Parallel()
	f := newReaperFixture(t)
	cfg := testReaperConfig()

	gomock.InOrder(
		f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(100), nil),
		f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(3), nil),
		f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(0), nil),
	)
	f.repo.EXPECT().DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
		Status: model.JobStatusCompleted, MaxAge: cfg.CompletedMaxAge, BatchSize: cfg.BatchSize,
	}).Return(int64(0), nil)
	f.repo.EXPECT().DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
		Status: model.JobStatusFailed, MaxAge: cfg.FailedMaxAge, BatchSize: cfg.BatchSize,
	}).Return(int64(0), nil)

	wantCutoff := f.now.Add(-4380 * time.Hour)
	gomock.InOrder(
		f.listings.EXPECT().PurgeSoftDeleted(gomock.Any(), core.PurgeSoftDeletedParams{
			DeletedBefore: wantCutoff, BatchSize: cfg.BatchSize,
		}).Return(int64(2), nil),
		f.listings.EXPECT().PurgeSoftDeleted(gomock.Any(), gomock.Any()).Return(int64(0), nil),
	)
	f.media.EXPECT().DeleteTemporaryOlderThan(gomock.Any(), f.now.Add(-24*time.Hour), cfg.BatchSize).Return(int64(0), nil)

	require.NoError(t, f.svc.RunOnce(context.Background()))
}

func TestReaperService_RunOnce_StepsAreIndependent(t *testing.T) {
	t.Parallel()
	f := newReaperFixture(t)
	boom := errors.New("relation does not exist")

	f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), boom)
	f.repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)
	f.listings.EXPECT().PurgeSoftDeleted(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	f.media.EXPECT().DeleteTemporaryOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil)

	err := f.svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fail stale pending jobs")
}

func TestReaperService_RunOnce_Canceled(t *testing.T) {
	t.Parallel()
	f := newReaperFixture(t)

	f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled)
	f.repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled).Times(2)
	f.listings.EXPECT().PurgeSoftDeleted(gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled)
	f.media.EXPECT().DeleteTemporaryOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled)

	err := f.svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaperService_OptionalSteps(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	cfg := testReaperConfig()
	cfg.PurgeListings = false

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:     repo,
		Listings: mocks.NewMockListingRepository(ctrl),
		Config:   cfg,
	})
	require.NoError(t, err)

	repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)
	require.NoError(t, svc.RunOnce(context.Background()))
}

func TestReaperService_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	f := newReaperFixture(t)
	f.repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	f.repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	f.listings.EXPECT().PurgeSoftDeleted(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	f.media.EXPECT().DeleteTemporaryOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, f.svc.Run(ctx))
}
