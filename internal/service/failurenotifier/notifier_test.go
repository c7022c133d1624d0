package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unevent/unevent-api/internal/observability/notify"
)

func TestServiceNotifyDeliveryFailure(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []notify.DeliveryFailure
	)
	capture := notify.SinkFunc(func(_ context.Context, p notify.DeliveryFailure) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, p)
		return nil
	})
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "a", Sink: capture},
		{Name: "b", Sink: capture},
		{Name: "nil"},
	}})
	require.True(t, svc.Enabled())

	svc.NotifyDeliveryFailure(context.Background(), notify.DeliveryFailure{JobID: "123", Event: "listing.approved"})

	require.Len(t, received, 2)
	for _, p := range received {
		assert.Equal(t, "123", p.JobID)
		assert.Equal(t, notify.SeverityError, p.Severity)
	}
}

func TestServiceKeepsExplicitSeverity(t *testing.T) {
	t.Parallel()
	var got notify.DeliveryFailure
	svc := NewService(Options{Sinks: []SinkRegistration{{Sink: notify.SinkFunc(func(_ context.Context, p notify.DeliveryFailure) error {
		got = p
		return nil
	})}}})

	svc.NotifyDeliveryFailure(context.Background(), notify.DeliveryFailure{Severity: notify.SeverityCritical})
	assert.Equal(t, notify.SeverityCritical, got.Severity)
}

func TestServiceDisabled(t *testing.T) {
	t.Parallel()
	assert.False(t, NewService(Options{}).Enabled())

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	nilSvc.NotifyDeliveryFailure(context.Background(), notify.DeliveryFailure{})
}

func TestServiceSinkErrorDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	delivered := false
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "broken", Sink: notify.SinkFunc(func(context.Context, notify.DeliveryFailure) error {
			return errors.New("sink down")
		})},
		{Name: "ok", Sink: notify.SinkFunc(func(context.Context, notify.DeliveryFailure) error {
			delivered = true
			return nil
		})},
	}})

	svc.NotifyDeliveryFailure(context.Background(), notify.DeliveryFailure{JobID: "x"})
	assert.True(t, delivered)
}
