package core

import (
	"context"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_core.go -package=mocks

// ListingRepository defines the interface for listing data operations.
type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) (*model.Listing, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) (*model.Listing, error)
	SetDeletedAt(ctx context.Context, id string, at *time.Time) (*model.Listing, error)
	Delete(ctx context.Context, id string) (bool, error)
	PurgeSoftDeleted(ctx context.Context, params PurgeSoftDeletedParams) (int64, error)
}

// PurgeSoftDeletedParams groups parameters for ListingRepository.PurgeSoftDeleted.
type PurgeSoftDeletedParams struct {
	DeletedBefore time.Time
	BatchSize     int
}

// MediaRepository defines the interface for media data operations.
type MediaRepository interface {
	Create(ctx context.Context, req *model.RegisterMediaRequest) (*model.Media, error)
	GetByID(ctx context.Context, id string) (*model.Media, error)
	Update(ctx context.Context, id string, upd model.MediaUpdate) (*model.Media, error)
	DeleteTemporaryOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// AccountRepository defines read access to login accounts.
type AccountRepository interface {
	// FindByProfile returns the first account whose profile equals profileID, or ErrAccountNotFound.
	FindByProfile(ctx context.Context, profileID string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
}

// ProfileRepository defines read access to public profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
}

// ReaperRepository defines the maintenance operations on the job queue.
type ReaperRepository interface {
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// CacheRepository stores expiring markers.
type CacheRepository interface {
	// SetIfNotExists reports false when key is already held.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}
