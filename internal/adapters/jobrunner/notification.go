package jobrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
	obserrors "github.com/unevent/unevent-api/internal/observability/errors"
	"github.com/unevent/unevent-api/internal/observability/notify"
	"github.com/unevent/unevent-api/internal/ports"
)

// Renderer turns a notification payload into an email.
type Renderer interface {
	Render(p *model.NotificationPayload) (ports.Message, error)
}

// FailureNotifier hears about jobs that used their last attempt.
type FailureNotifier interface {
	NotifyDeliveryFailure(ctx context.Context, payload notify.DeliveryFailure)
}

func deliverNotification(renderer Renderer, mailer ports.Mailer, log *slog.Logger) HandlerFunc {
	return func(ctx context.Context, job *model.Job) error {
		p, err := model.DecodeNotificationPayload(job.Payload)
		if err != nil {
			return err
		}
		msg, err := renderer.Render(p)
		if err != nil {
			return fmt.Errorf("render %s: %w", p.Event, err)
		}
		if err := mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("send %s: %w", p.Event, err)
		}
		log.InfoContext(ctx, "notification delivered", "job_id", job.ID, "event", p.Event, "recipients", len(msg.To))
		return nil
	}
}

// exhausted describes a job that will not be retried. The listing title is
// carried along when the payload still decodes.
func exhausted(job *model.Job, cause error) notify.DeliveryFailure {
	f := notify.DeliveryFailure{
		JobID:      job.ID,
		Event:      string(job.Type),
		Attempts:   job.Attempt(),
		Error:      cause.Error(),
		ErrorClass: obserrors.Classify(cause),
		OccurredAt: time.Now().UTC(),
	}
	p, err := model.DecodeNotificationPayload(job.Payload)
	if err != nil {
		return f
	}
	f.Event, f.Recipients = string(p.Event), len(p.To)
	if title := p.Data["title"]; title != "" {
		f.Metadata = map[string]string{"title": title}
	}
	return f
}
