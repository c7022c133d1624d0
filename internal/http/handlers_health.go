package httpx

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	healthResponse = `{"status":"ok"}`
	checkTimeout   = 2 * time.Second
)

// HealthCheck probes one dependency for /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// healthHandler answers liveness probes. HEAD gets headers only.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// readinessHandler runs every check concurrently and answers 503 if any fails.
// Error text is not exposed; the check reports "unavailable".
func readinessHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		body := readinessBody{Status: "ok", Checks: make(map[string]string, len(checks))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, c := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				state := "ok"
				if err := c.Check(ctx); err != nil {
					state = "unavailable"
				}
				mu.Lock()
				body.Checks[c.Name] = state
				if state != "ok" {
					body.Status = "degraded"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		code := http.StatusOK
		if body.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, body)
	}
}
