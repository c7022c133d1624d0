package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType names a queue. Each type has its own runner.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver
type JobType string

const JobTypeNotification JobType = "notification"

func (t JobType) Valid() bool { return t == JobTypeNotification }

func (t *JobType) UnmarshalText(text []byte) error {
	jt := JobType(strings.ToLower(strings.TrimSpace(string(text))))
	if !jt.Valid() {
		return fmt.Errorf("invalid JobType: %q", string(text))
	}
	*t = jt
	return nil
}

// JobStatus moves pending -> running -> completed, or back to pending on a
// retryable failure, or to failed once retries run out.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

var ErrNoJobsAvailable = errors.New("no jobs available")

// Job is a unit of queued work delivered at least once.
type Job struct {
	ID             string          `json:"id"`
	Type           JobType         `json:"type"`
	Status         JobStatus       `json:"status"`
	Payload        json.RawMessage `json:"payload"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	RetryCount     int             `json:"retry_count"`
	MaxRetries     int             `json:"max_retries"`
	LastError      *string         `json:"last_error,omitempty"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Attempt is the 1-based number of the run in progress.
func (j *Job) Attempt() int { return j.RetryCount + 1 }

// FinalAttempt reports whether a failure now marks the job failed rather
// than returning it to pending.
func (j *Job) FinalAttempt() bool { return j.Attempt() >= j.MaxRetries }

type CreateJobRequest struct {
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	MaxRetries  int             `json:"max_retries"`
}

func (r *CreateJobRequest) Validate() error {
	switch {
	case !r.Type.Valid():
		return errors.New("invalid job type")
	case len(r.Payload) == 0:
		return errors.New("payload is required")
	case r.MaxRetries < 0:
		return errors.New("max retries must be >= 0")
	}
	return nil
}

// JobStats counts jobs of one type by status.
type JobStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
