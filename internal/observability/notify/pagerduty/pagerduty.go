// Package pagerduty triggers incidents for undeliverable notifications via the
// PagerDuty Events API v2.
package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/unevent/unevent-api/internal/observability/notify"
)

// APIEndpoint is the Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	// Endpoint replaces APIEndpoint, mostly for tests.
	Endpoint string
	Client   *http.Client
}

type Client struct {
	key       string
	source    string
	component string
	hook      notify.Webhook
}

// event is the trigger document accepted by the enqueue endpoint.
type event struct {
	RoutingKey string  `json:"routing_key"`
	Action     string  `json:"event_action"`
	DedupKey   string  `json:"dedup_key,omitempty"`
	Payload    details `json:"payload"`
}

type details struct {
	Summary   string         `json:"summary"`
	Severity  string         `json:"severity"`
	Source    string         `json:"source"`
	Component string         `json:"component"`
	Timestamp string         `json:"timestamp"`
	Custom    map[string]any `json:"custom_details"`
}

func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}
	url := notify.Or(cfg.Endpoint, APIEndpoint)
	return &Client{
		key:       key,
		source:    notify.Or(cfg.Source, "unevent-api"),
		component: notify.Or(cfg.Component, "notifications"),
		hook:      notify.NewWebhook("pagerduty api", url, cfg.Timeout, cfg.RetryLimit, cfg.Client),
	}, nil
}

func (c *Client) SendDeliveryFailure(ctx context.Context, f notify.DeliveryFailure) error {
	return c.hook.Send(ctx, c.buildEvent(f))
}

// buildEvent keys the incident on the job so repeat alerts for one job
// collapse into a single incident. Metadata never shadows the core fields.
func (c *Client) buildEvent(f notify.DeliveryFailure) event {
	custom := make(map[string]any, len(f.Metadata)+6)
	for k, v := range f.Metadata {
		custom[k] = v
	}
	maps.Copy(custom, map[string]any{
		"job_id":      f.JobID,
		"event":       f.Event,
		"recipients":  f.Recipients,
		"attempts":    f.Attempts,
		"error":       f.Error,
		"error_class": f.ErrorClass,
	})

	var dedup string
	if f.JobID != "" {
		dedup = "notification:" + f.JobID
	}

	return event{
		RoutingKey: c.key,
		Action:     "trigger",
		DedupKey:   dedup,
		Payload: details{
			Summary: fmt.Sprintf("Notification %s (job %s) could not be delivered",
				notify.Or(f.Event, "unknown"), notify.Or(f.JobID, "unknown")),
			Severity:  strings.ToLower(notify.Or(f.Severity, notify.SeverityError)),
			Source:    c.source,
			Component: c.component,
			Timestamp: f.When().Format(time.RFC3339),
			Custom:    custom,
		},
	}
}
