package data

import (
	"database/sql"
	"log/slog"
	"time"
)

const defaultRetryDelay = 30 * time.Second

// RepoConfig configures NewJobRepo. Zero values take defaults.
type RepoConfig struct {
	// RetryDelay holds a failed job back before it can be reserved again.
	RetryDelay   time.Duration
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo is the Postgres-backed notification queue. Reservation uses
// FOR UPDATE SKIP LOCKED and wakeups ride on LISTEN/NOTIFY.
type JobRepo struct {
	DB           *sql.DB
	retryDelay   time.Duration
	timeProvider TimeProvider
	logger       *slog.Logger
}

func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	r := &JobRepo{
		DB:           db,
		retryDelay:   cfg.RetryDelay,
		timeProvider: cfg.TimeProvider,
		logger:       cfg.Logger,
	}
	if r.retryDelay <= 0 {
		r.retryDelay = defaultRetryDelay
	}
	if r.timeProvider == nil {
		r.timeProvider = &RealTimeProvider{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "job_repo")
	return r
}
