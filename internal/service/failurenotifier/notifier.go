// Package failurenotifier fans delivery failure alerts out to ops sinks.
package failurenotifier

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/unevent/unevent-api/internal/observability/notify"
)

// SinkRegistration names a sink for log lines.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service is safe to use as a nil pointer, in which case it does nothing.
type Service struct {
	log   *slog.Logger
	sinks []SinkRegistration
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Service{log: log.With("component", "failure_notifier")}
	for _, reg := range opts.Sinks {
		if reg.Sink == nil {
			continue
		}
		reg.Name = notify.Or(reg.Name, "sink")
		s.sinks = append(s.sinks, reg)
	}
	return s
}

func (s *Service) Enabled() bool { return s != nil && len(s.sinks) > 0 }

// NotifyDeliveryFailure hands f to every sink in parallel and returns once all
// of them are done. A failing sink is logged and does not affect the others.
func (s *Service) NotifyDeliveryFailure(ctx context.Context, f notify.DeliveryFailure) {
	if !s.Enabled() {
		return
	}
	f.Severity = notify.Or(f.Severity, notify.SeverityError)

	var g errgroup.Group
	for _, reg := range s.sinks {
		g.Go(func() error {
			if err := reg.Sink.SendDeliveryFailure(ctx, f); err != nil {
				s.log.ErrorContext(ctx, "alert sink failed",
					"sink", reg.Name, "job_id", f.JobID, "event", f.Event, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
