// Package slack posts delivery failure alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/unevent/unevent-api/internal/observability/notify"
)

type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

type Client struct {
	channel  string
	username string
	hook     notify.Webhook
}

// message is the incoming webhook body. Channel overrides only work for
// legacy webhooks; app webhooks ignore it.
type message struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, errors.New("slack webhook url is required")
	}
	return &Client{
		channel:  strings.TrimSpace(cfg.Channel),
		username: notify.Or(cfg.Username, "unevent-api"),
		hook:     notify.NewWebhook("slack webhook", url, cfg.Timeout, cfg.RetryLimit, cfg.Client),
	}, nil
}

func (c *Client) SendDeliveryFailure(ctx context.Context, f notify.DeliveryFailure) error {
	return c.hook.Send(ctx, c.formatMessage(f))
}

func (c *Client) formatMessage(f notify.DeliveryFailure) message {
	head := "*Notification delivery failed*"
	if f.JobID != "" {
		head += " `" + f.JobID + "`"
	}
	if f.Event != "" {
		head += " (" + escaper.Replace(f.Event) + ")"
	}

	lines := []string{head}
	bullet := func(indent, label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, indent+"• "+label+": "+value)
		}
	}
	bullet("", "Severity", notify.Or(f.Severity, notify.SeverityError))
	if f.Recipients > 0 {
		bullet("", "Recipients", fmt.Sprint(f.Recipients))
	}
	if f.Attempts > 0 {
		bullet("", "Attempts", fmt.Sprint(f.Attempts))
	}
	bullet("", "Error class", f.ErrorClass)
	bullet("", "Error", escaper.Replace(f.Error))
	if len(f.Metadata) > 0 {
		lines = append(lines, "• Metadata:")
		for _, k := range slices.Sorted(maps.Keys(f.Metadata)) {
			bullet("    ", k, escaper.Replace(f.Metadata[k]))
		}
	}
	bullet("", "Timestamp", f.When().Format(time.RFC3339))

	return message{Text: strings.Join(lines, "\n"), Username: c.username, Channel: c.channel}
}
