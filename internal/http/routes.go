package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Listings ListingService
	Media    MediaService
	// Auth is optional; without it the API routes run without an actor.
	Auth AuthServiceInterface
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Checks back /readyz. With none it always reports ok.
	Checks       []HealthCheck
	CookieDomain string
	LogoutURL    string
	// CSRF enables double-submit token checks on API writes and logout.
	CSRF   bool
	Logger *slog.Logger
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// routeWrappers builds the per-route middleware from the configured services.
type routeWrappers struct {
	auth  middleware
	admin middleware
	csrf  middleware
}

func newRouteWrappers(services RouterServices) routeWrappers {
	var rw routeWrappers
	if services.Auth != nil {
		rw.auth = RequireAuth(services.Auth)
		rw.admin = RequireRole(services.Auth, domainauth.RoleAdmin)
	}
	if services.CSRF {
		rw.csrf = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})
	}
	return rw
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	rw := newRouteWrappers(services)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Checks))

	gatherer := services.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			LogoutURL:    services.LogoutURL,
			Logger:       services.Logger,
		}, rw)
	}
	if services.Listings != nil {
		registerListingRoutes(mux, &ListingHandlers{Svc: services.Listings, Logger: services.Logger}, rw)
	}
	if services.Media != nil {
		registerMediaRoutes(mux, &MediaHandlers{Svc: services.Media, Logger: services.Logger}, rw)
	}

	mux.HandleFunc("/", notFoundHandler)
	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, rw routeWrappers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.Handle("POST /auth/logout", chain(http.HandlerFunc(h.Logout), rw.csrf))
	mux.Handle("GET /api/me", chain(http.HandlerFunc(h.Me), rw.csrf, rw.auth))
}

func registerListingRoutes(mux *http.ServeMux, h *ListingHandlers, rw routeWrappers) {
	const base = "/api/listings"
	user := func(fn http.HandlerFunc) http.Handler { return chain(fn, rw.csrf, rw.auth) }
	admin := func(fn http.HandlerFunc) http.Handler { return chain(fn, rw.csrf, rw.admin) }

	mux.Handle("GET "+base, user(h.List))
	mux.Handle("POST "+base+"/{collection}", user(h.Create))
	mux.Handle("GET "+base+"/{id}", user(h.Get))
	mux.Handle("PATCH "+base+"/{id}", user(h.Update))
	mux.Handle("DELETE "+base+"/{id}", user(h.SoftDelete))
	mux.Handle("POST "+base+"/{id}/restore", user(h.Restore))
	mux.Handle("DELETE "+base+"/{id}/permanent", user(h.HardDelete))
	mux.Handle("POST "+base+"/{id}/moderation", admin(h.Moderate))
}

func registerMediaRoutes(mux *http.ServeMux, h *MediaHandlers, rw routeWrappers) {
	mux.Handle("POST /api/media", chain(http.HandlerFunc(h.Register), rw.csrf, rw.auth))
	mux.Handle("GET /api/media/{id}", chain(http.HandlerFunc(h.Get), rw.csrf, rw.auth))
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	fail(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
}
