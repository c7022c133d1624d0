package data

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const jobColumns = `id, type, status, payload, scheduled_at, started_at, completed_at,
  retry_count, max_retries, last_error, lease_expires_at, created_at, updated_at`

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		j                                 model.Job
		payload                           []byte
		lastErr                           sql.NullString
		started, completed, leaseExpires sql.NullTime
	)
	err := row.Scan(&j.ID, &j.Type, &j.Status, &payload, &j.ScheduledAt,
		&started, &completed, &j.RetryCount, &j.MaxRetries, &lastErr,
		&leaseExpires, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(`{}`)
	if len(payload) > 0 {
		j.Payload = append(json.RawMessage(nil), payload...)
	}
	if lastErr.Valid {
		j.LastError = &lastErr.String
	}
	j.StartedAt = nullableTime(started)
	j.CompletedAt = nullableTime(completed)
	j.LeaseExpiresAt = nullableTime(leaseExpires)
	return &j, nil
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
