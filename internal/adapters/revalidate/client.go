// Package revalidate calls the frontend endpoint that regenerates the sitemap
// and cached listing pages.
package revalidate

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

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
)

const (
	defaultTimeout = 5 * time.Second
	keyPrefix      = "revalidate:"
	maxErrorBody   = 1024
)

// Options configures a Client. The client reports ports.ErrRevalidationDisabled
// when URL or Secret is empty.
type Options struct {
	URL      string
	Secret   string
	Timeout  time.Duration
	Debounce time.Duration        // zero disables debouncing
	Cache    core.CacheRepository // required for debouncing
	Client   *http.Client
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Client implements ports.Revalidator.
type Client struct {
	url      string
	secret   string
	debounce time.Duration
	cache    core.CacheRepository
	http     *http.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

var _ ports.Revalidator = (*Client)(nil)

// New constructs a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      strings.TrimSpace(opts.URL),
		secret:   strings.TrimSpace(opts.Secret),
		debounce: opts.Debounce,
		cache:    opts.Cache,
		http:     hc,
		logger:   logger.With("component", "revalidate"),
		metrics:  opts.Metrics,
	}
}

type revalidateBody struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
}

// Revalidate posts the collection and slug to the frontend.
func (c *Client) Revalidate(ctx context.Context, req ports.RevalidateRequest) error {
	if c.url == "" || c.secret == "" {
		c.metrics.Revalidation("disabled")
		return ports.ErrRevalidationDisabled
	}

	if c.debounced(ctx, req) {
		c.metrics.Revalidation("debounced")
		return ports.ErrRevalidationDebounced
	}

	err := c.post(ctx, req)
	if err != nil {
		c.metrics.Revalidation(metrics.ResultError)
		// Let the next write retry immediately.
		c.release(ctx, req)
		return err
	}
	c.metrics.Revalidation(metrics.ResultSuccess)
	return nil
}

func debounceKey(req ports.RevalidateRequest) string {
	return keyPrefix + string(req.Collection) + ":" + req.Slug
}

// debounced claims the debounce key. Cache failures never block a call.
func (c *Client) debounced(ctx context.Context, req ports.RevalidateRequest) bool {
	if c.cache == nil || c.debounce <= 0 {
		return false
	}
	set, err := c.cache.SetIfNotExists(ctx, debounceKey(req), []byte(req.ListingID), c.debounce)
	if err != nil {
		c.logger.WarnContext(ctx, "revalidation debounce unavailable", "listing_id", req.ListingID, "error", err)
		return false
	}
	return !set
}

func (c *Client) release(ctx context.Context, req ports.RevalidateRequest) {
	if c.cache == nil || c.debounce <= 0 {
		return
	}
	if _, err := c.cache.Delete(ctx, debounceKey(req)); err != nil {
		c.logger.DebugContext(ctx, "release revalidation debounce", "listing_id", req.ListingID, "error", err)
	}
}

func (c *Client) post(ctx context.Context, req ports.RevalidateRequest) error {
	body, err := json.Marshal(revalidateBody{Collection: string(req.Collection), Slug: req.Slug})
	if err != nil {
		return fmt.Errorf("encode revalidate body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create revalidate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("revalidate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	c.logger.DebugContext(ctx, "revalidation requested",
		"listing_id", req.ListingID,
		"collection", req.Collection,
		"slug", req.Slug,
	)
	return nil
}

// StatusError is a non-2xx answer from the revalidation endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("revalidate endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("revalidate endpoint returned %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
