// Package notify defines the ops alert raised when an email notification
// cannot be delivered, and the sinks that carry it.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// DeliveryFailure describes a notification job that spent its last attempt.
type DeliveryFailure struct {
	JobID      string
	Event      string
	Recipients int
	Attempts   int
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// When returns the failure time in UTC, defaulting to now.
func (f DeliveryFailure) When() time.Time {
	if f.OccurredAt.IsZero() {
		return time.Now().UTC()
	}
	return f.OccurredAt.UTC()
}

// Sink is a destination for delivery failure alerts.
type Sink interface {
	SendDeliveryFailure(ctx context.Context, payload DeliveryFailure) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload DeliveryFailure) error

// SendDeliveryFailure implements Sink.
func (f SinkFunc) SendDeliveryFailure(ctx context.Context, payload DeliveryFailure) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
