package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType_Valid(t *testing.T) {
	assert.True(t, JobTypeNotification.Valid())
	assert.False(t, JobType("alert").Valid())
}

func TestJobType_UnmarshalText(t *testing.T) {
	var jt JobType
	require.NoError(t, jt.UnmarshalText([]byte(" Notification ")))
	assert.Equal(t, JobTypeNotification, jt)
	assert.Error(t, jt.UnmarshalText([]byte("browser")))
}

func TestJob_FinalAttempt(t *testing.T) {
	job := &Job{RetryCount: 0, MaxRetries: 3}
	assert.Equal(t, 1, job.Attempt())
	assert.False(t, job.FinalAttempt())

	job.RetryCount = 2
	assert.True(t, job.FinalAttempt())

	assert.True(t, (&Job{MaxRetries: 0}).FinalAttempt())
}

func TestJobStatus_Valid(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, JobStatus("paused").Valid())
}

func TestCreateJobRequest_Validate(t *testing.T) {
	req := &CreateJobRequest{Type: JobTypeNotification, Payload: json.RawMessage(`{"event":"listing.approved"}`)}
	assert.NoError(t, req.Validate())

	req.MaxRetries = -1
	assert.Error(t, req.Validate())

	assert.Error(t, (&CreateJobRequest{Type: JobTypeNotification}).Validate())
}

func TestDecodeNotificationPayload(t *testing.T) {
	p, err := DecodeNotificationPayload(json.RawMessage(`{"event":"listing.approved","to":["a@b.ro"],"data":{"title":"Sala"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventListingApproved, p.Event)
	assert.Equal(t, "Sala", p.Data["title"])

	_, err = DecodeNotificationPayload(json.RawMessage(`{"event":"listing.approved"}`))
	assert.Error(t, err)

	_, err = DecodeNotificationPayload(json.RawMessage(`{"event":"listing.approved","to":[" "]}`))
	assert.Error(t, err)
}
