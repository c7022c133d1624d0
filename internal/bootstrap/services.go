package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/adapters/revalidate"
	"github.com/unevent/unevent-api/internal/data"
	httpx "github.com/unevent/unevent-api/internal/http"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
	"github.com/unevent/unevent-api/internal/service"
	"github.com/unevent/unevent-api/internal/service/hooks"
)

const cacheKeyPrefix = "unevent:"

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Listings      *service.ListingService
	Media         *service.MediaService
	Notifications *service.NotificationService
	Auth          *service.AuthService
	Metrics       *metrics.Metrics
	Checks        []httpx.HealthCheck
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Metrics defaults to the collectors on the global registry.
	Metrics *metrics.Metrics
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs     *data.JobRepo
	Listings *data.ListingRepo
	Media    *data.MediaRepo
	Accounts *data.AccountRepo
	Profiles *data.ProfileRepo
	// Cache is nil without Redis; revalidation then runs undebounced.
	Cache *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, client redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:     data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		Listings: data.NewListingRepo(db, data.ListingRepoOptions{Logger: logger}),
		Media:    data.NewMediaRepo(db, nil),
		Accounts: data.NewAccountRepo(db),
		Profiles: data.NewProfileRepo(db),
	}
	if client != nil {
		repos.Cache = data.NewRedisCacheRepo(client, cacheKeyPrefix)
	}
	return repos
}

// hookSettings maps configuration onto the values listing hooks read.
func hookSettings(cfg *config.AppConfig) hooks.Settings {
	return hooks.Settings{
		AdminRecipients:     cfg.Notify.AdminRecipients,
		DashboardBaseURL:    cfg.Notify.DashboardBaseURL,
		FrontendBaseURL:     cfg.Notify.FrontendBaseURL,
		SupportEmail:        cfg.Notify.SupportEmail,
		HardDeleteRetention: cfg.Moderation.HardDeleteRetention,
		MediaConcurrency:    cfg.Moderation.MediaConcurrency,
	}
}

//nolint:ireturn // hooks depend on the port only.
func newRevalidator(cfg config.RevalidateConfig, repos *serviceRepositories, m *metrics.Metrics, logger *slog.Logger) ports.Revalidator {
	opts := revalidate.Options{
		URL:      cfg.URL,
		Secret:   cfg.Secret,
		Timeout:  cfg.Timeout,
		Debounce: cfg.Debounce,
		Logger:   logger,
		Metrics:  m,
	}
	if repos.Cache != nil {
		opts.Cache = repos.Cache
	} else {
		opts.Debounce = 0
	}
	if !cfg.Enabled() {
		logger.Info("sitemap revalidation disabled: REVALIDATE_URL or REVALIDATE_SECRET not set")
	}
	return revalidate.New(opts)
}

// NewServices wires repositories, the hook pipeline and the services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:         repos.Jobs,
		DefaultLease: appCfg.NotificationRunner.JobLease,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	notifications, err := service.NewNotificationService(service.NotificationServiceOptions{
		Jobs:       repos.Jobs,
		MaxRetries: appCfg.Notify.MaxRetries,
		Metrics:    m,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create notification service: %w", err)
	}

	listings, err := service.NewListingService(service.ListingServiceOptions{
		Listings: repos.Listings,
		Clients: hooks.Clients{
			Media:         repos.Media,
			Accounts:      repos.Accounts,
			Profiles:      repos.Profiles,
			Notifications: notifications,
			Revalidator:   newRevalidator(appCfg.Revalidate, repos, m, logger),
		},
		Settings: hookSettings(appCfg),
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create listing service: %w", err)
	}

	media, err := service.NewMediaService(service.MediaServiceOptions{Repo: repos.Media, Logger: logger})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create media service: %w", err)
	}

	return ServiceContainer{
		Jobs:          jobs,
		Listings:      listings,
		Media:         media,
		Notifications: notifications,
		Auth: BuildAuthService(AuthConfig{
			Auth:        appCfg.Auth,
			RedisClient: deps.RedisClient,
			Accounts:    repos.Accounts,
			Metrics:     m,
			Logger:      logger,
		}),
		Metrics: m,
		Checks:  healthChecks(deps),
	}, nil
}

func healthChecks(deps *ServiceDeps) []httpx.HealthCheck {
	checks := []httpx.HealthCheck{{Name: "postgres", Check: deps.DB.PingContext}}
	if deps.RedisClient != nil {
		client := deps.RedisClient
		checks = append(checks, httpx.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	return checks
}
