package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/unevent/unevent-api/config"
	httpx "github.com/unevent/unevent-api/internal/http"
	"github.com/unevent/unevent-api/internal/observability/metrics"
)

const defaultAddr = ":8080"

type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the API server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := cfg.Config
	if app == nil {
		app = &config.AppConfig{}
	}

	addr := app.HTTP.Addr
	if addr == "" {
		addr = defaultAddr
	}
	return &http.Server{
		Addr: addr,
		Handler: buildHTTPHandler(httpHandlerConfig{
			Logger:   logger,
			Services: routerServices(app, cfg.Services, logger),
			HTTP:     app.HTTP,
			Metrics:  cfg.Services.Metrics,
		}),
		ReadTimeout:       app.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      app.HTTP.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

func routerServices(app *config.AppConfig, svcs ServiceContainer, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		CookieDomain: app.HTTP.CookieDomain,
		LogoutURL:    app.Auth.OAuth.LogoutURL,
		CSRF:         app.HTTP.CSRFEnabled,
		Checks:       svcs.Checks,
		Logger:       logger,
	}
	// a typed nil pointer in an interface would not compare equal to nil
	if svcs.Listings != nil {
		rs.Listings = svcs.Listings
	}
	if svcs.Media != nil {
		rs.Media = svcs.Media
	}
	if svcs.Auth != nil {
		rs.Auth = svcs.Auth
	} else {
		logger.Warn("auth service unavailable; API routes run without an actor")
	}
	return rs
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
	Metrics  *metrics.Metrics
}

// buildHTTPHandler wraps the router, outermost first:
// Recover, RequestID, Logging, LimitBody.
func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httpx.Recover(cfg.Logger),
		httpx.RequestID(),
		httpx.Logging(httpx.LoggingOptions{Logger: cfg.Logger, Metrics: cfg.Metrics}),
		httpx.LimitBody(cfg.HTTP.MaxBodyBytes),
	}
	var h http.Handler = httpx.NewRouter(cfg.Services)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// serveHTTP listens until ctx ends, then drains in-flight requests for up to grace.
func serveHTTP(ctx context.Context, srv *http.Server, logger *slog.Logger, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
