package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/unevent/unevent-api/internal/adapters/mailer"
	"github.com/unevent/unevent-api/internal/bootstrap"
	"github.com/unevent/unevent-api/internal/data"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/service"
)

type notifyOptions struct {
	Event   model.EventType
	To      []string
	Data    map[string]string
	Send    bool
	Timeout time.Duration
}

// dataFlag collects repeated key=value pairs.
type dataFlag map[string]string

func (d dataFlag) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, ",")
}

func (d dataFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	d[key] = value
	return nil
}

// runTestNotify renders the payload first so template errors surface before
// anything is queued or sent.
func runTestNotify(cmdCtx *commandContext, args []string) error {
	opts, err := parseNotifyFlags(args)
	if err != nil {
		return err
	}

	payload := model.NotificationPayload{Event: opts.Event, To: opts.To, Data: opts.Data}
	if validateErr := payload.Validate(); validateErr != nil {
		return validateErr
	}
	msg, err := mailer.MustNewRegistry().Render(&payload)
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}
	if printErr := writef(os.Stdout, "To: %s\nSubject: %s\n\n%s\n", strings.Join(msg.To, ", "), msg.Subject, msg.Text); printErr != nil {
		return printErr
	}

	if opts.Send {
		ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
		defer cancel()
		client, clientErr := bootstrap.NewMailer(cmdCtx.Config.Mailer, cmdCtx.Logger, metrics.Default())
		if clientErr != nil {
			return clientErr
		}
		if sendErr := client.Send(ctx, msg); sendErr != nil {
			return fmt.Errorf("send notification: %w", sendErr)
		}
		cmdCtx.Logger.Info("notification sent", "event", opts.Event, "recipients", len(msg.To))
		return nil
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		svc, svcErr := service.NewNotificationService(service.NotificationServiceOptions{
			Jobs:       data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
			MaxRetries: cmdCtx.Config.Notify.MaxRetries,
			Metrics:    metrics.Default(),
			Logger:     cmdCtx.Logger,
		})
		if svcErr != nil {
			return svcErr
		}
		id, enqueueErr := svc.Enqueue(ctx, payload)
		if enqueueErr != nil {
			return fmt.Errorf("enqueue notification: %w", enqueueErr)
		}
		cmdCtx.Logger.Info("notification enqueued", "event", opts.Event, "job_id", id)
		return nil
	})
}

func parseNotifyFlags(args []string) (notifyOptions, error) {
	var event, to string
	opts := notifyOptions{Data: dataFlag{}}
	f := newCmdFlags("test-notify", 30*time.Second, "Maximum duration to enqueue or send")
	f.StringVar(&event, "event", "", "Notification event, e.g. "+string(model.EventListingApproved))
	f.StringVar(&to, "to", "", "Comma separated recipient addresses")
	f.Var(dataFlag(opts.Data), "data", "Template value as key=value; repeatable")
	f.BoolVar(&opts.Send, "send", false, "Send directly through the mailer instead of enqueueing a job")

	timeout, err := f.parse(args)
	if err != nil {
		return notifyOptions{}, err
	}
	opts.Timeout = timeout

	if opts.Event = model.EventType(strings.TrimSpace(event)); opts.Event == "" {
		return notifyOptions{}, errors.New("--event is required")
	}
	for addr := range strings.SplitSeq(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			opts.To = append(opts.To, addr)
		}
	}
	if len(opts.To) == 0 {
		return notifyOptions{}, errors.New("--to is required")
	}
	return opts, nil
}
