package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 5 * time.Second
	backoffUnit    = 200 * time.Millisecond
	errBodyLimit   = 4 << 10
)

// Webhook posts JSON documents to a single endpoint. A failed post is retried
// up to Retries more times with a linearly growing pause.
type Webhook struct {
	Name    string
	URL     string
	Retries int
	HTTP    *http.Client
}

// NewWebhook fills in an http.Client with timeout when hc is nil.
func NewWebhook(name, url string, timeout time.Duration, retries int, hc *http.Client) Webhook {
	if hc == nil {
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return Webhook{Name: name, URL: url, Retries: max(retries, 0), HTTP: hc}
}

// Send encodes v and posts it until one attempt succeeds or the retries run out.
func (w Webhook) Send(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", w.Name, err)
	}

	err = w.post(ctx, body)
	for n := 1; err != nil && n <= w.Retries; n++ {
		pause := time.NewTimer(time.Duration(n) * backoffUnit)
		select {
		case <-ctx.Done():
			pause.Stop()
			return ctx.Err()
		case <-pause.C:
		}
		err = w.post(ctx, body)
	}
	return err
}

func (w Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", w.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", w.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	return fmt.Errorf("%s: %s: %s", w.Name, resp.Status, strings.TrimSpace(string(detail)))
}

// Or returns def when value is blank, and value trimmed otherwise.
func Or(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
