package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

type LoggingOptions struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// statusRecorder remembers the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging writes one access log line per request and observes its latency.
func Logging(opts LoggingOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			took := time.Since(start)

			opts.Metrics.HTTPRequest(r.Method, rec.status, took)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", took),
				slog.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

// RequestID trusts an inbound X-Request-Id of sane length and mints one otherwise.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recover turns a handler panic into a logged 500.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.ErrorContext(r.Context(), "panic",
					"error", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				fail(w, http.StatusInternalServerError, "internal", "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth admits any signed-in session, guests included.
func RequireAuth(authSvc AuthServiceInterface) func(http.Handler) http.Handler {
	return RequireRole(authSvc, domainauth.RoleGuest)
}

// RequireRole loads the session and actor into the context, answering 401
// without a session and 403 when the role ranks below required.
func RequireRole(authSvc AuthServiceInterface, required domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromCookie(r, authSvc)
			if sess == nil {
				fail(w, http.StatusUnauthorized, "authentication_required", "authentication required")
				return
			}
			if !hasRequiredRole(sess.Role, required) {
				fail(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			actor, err := authSvc.ResolveActor(r.Context(), sess)
			if err != nil {
				RenderError(ErrorOpts{W: w, R: r, Err: err})
				return
			}
			ctx := SetActorInContext(SetSessionInContext(r.Context(), sess), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromCookie returns nil for a missing cookie or an unknown session.
func sessionFromCookie(r *http.Request, authSvc AuthServiceInterface) *domainauth.Session {
	if authSvc == nil {
		return nil
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	sess, err := authSvc.GetSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return sess
}

func hasRequiredRole(have, required domainauth.Role) bool { return have.Satisfies(required) }
