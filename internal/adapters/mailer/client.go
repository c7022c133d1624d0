// Package mailer delivers rendered notification email through an HTTP mail API
// and owns the per-event email templates.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultBaseBackoff = 500 * time.Millisecond
	maxBackoff         = 10 * time.Second
	maxErrorBody       = 2048
)

// Config captures the mail API settings.
type Config struct {
	Endpoint   string
	APIKey     string
	From       string
	ReplyTo    string
	Timeout    time.Duration
	RetryLimit int
	// DryRun logs messages instead of sending them.
	DryRun bool
	// BaseBackoff is the first retry delay; each retry doubles it.
	BaseBackoff time.Duration
	Client      *http.Client
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Client is a ports.Mailer backed by a JSON mail API.
type Client struct {
	endpoint    string
	apiKey      string
	from        string
	replyTo     string
	retryLimit  int
	dryRun      bool
	baseBackoff time.Duration
	client      *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

var _ ports.Mailer = (*Client)(nil)

// NewClient builds a mail client. Endpoint and key are required unless DryRun is set.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if !cfg.DryRun {
		if endpoint == "" {
			return nil, errors.New("mailer endpoint is required")
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("mailer api key is required")
		}
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mailer from address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		from:        cfg.From,
		replyTo:     cfg.ReplyTo,
		retryLimit:  max(cfg.RetryLimit, 0),
		dryRun:      cfg.DryRun,
		baseBackoff: backoff,
		client:      hc,
		logger:      logger.With("component", "mailer"),
		metrics:     cfg.Metrics,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty"`
}

// StatusError is a non-2xx answer from the mail API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("mail api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("mail api returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed when retried.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Send posts msg, retrying 429 and 5xx answers and transport errors with exponential backoff.
func (c *Client) Send(ctx context.Context, msg ports.Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	if c.dryRun {
		c.logger.InfoContext(ctx, "dry run: email not sent",
			"to", msg.To,
			"subject", msg.Subject,
			"tag", msg.Tag,
		)
		return nil
	}

	payload := sendRequest{
		From:    c.from,
		To:      msg.To,
		ReplyTo: firstNonEmpty(msg.ReplyTo, c.replyTo),
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	if msg.Tag != "" {
		payload.Tags = []string{msg.Tag}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		status, postErr := c.post(ctx, body)
		c.metrics.MailSend(status, postErr)
		if postErr == nil {
			return nil
		}
		lastErr = postErr
		if !retryable(postErr) || attempt == attempts-1 {
			break
		}
		c.logger.WarnContext(ctx, "mail send failed, retrying",
			"attempt", attempt+1,
			"error", postErr,
		)
		if waitErr := sleepCtx(ctx, c.backoff(attempt)); waitErr != nil {
			return waitErr
		}
	}
	return lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseBackoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (c *Client) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	// Transport failures.
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
