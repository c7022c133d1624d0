package config

import (
	"os"
	"strings"
)

// AppConfig is the root configuration, loaded from environment variables
// with github.com/caarlos0/env. Domain sections live in their own files:
//   - auth.go: login provider and role groups
//   - database.go: Postgres and Redis
//   - http.go: HTTP server
//   - notify.go: notification links, revalidation, moderation, mailer
//   - services.go: service modes, notification runner and reaper
type AppConfig struct {
	// IsDev enables development behaviour (text logs, mock auth allowed).
	// Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma-delimited list of service modes to run.
	Services string `env:"SERVICES" envDefault:"http"`

	Notify     NotifyConfig     `envPrefix:"NOTIFY_"`
	Revalidate RevalidateConfig `envPrefix:"REVALIDATE_"`
	Moderation ModerationConfig `envPrefix:"MODERATION_"`
	Mailer     MailerConfig     `envPrefix:"MAILER_"`
	Alerts     AlertsConfig     `envPrefix:"ALERTS_"`

	NotificationRunner NotificationRunnerConfig `envPrefix:"NOTIFICATION_RUNNER_"`
	Reaper             ReaperConfig             `envPrefix:"REAPER_"`
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.Postgres.Sanitize()
	c.HTTP.Sanitize()
	c.Notify.Sanitize()
	c.Revalidate.Sanitize()
	c.Moderation.Sanitize()
	c.Mailer.Sanitize()
	c.Alerts.Sanitize()
	c.NotificationRunner.Sanitize()
	c.Reaper.Sanitize()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) isEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.isEnabled(ServiceModeHTTP) }

// IsNotificationRunnerEnabled returns true if the notification worker is enabled.
func (c *AppConfig) IsNotificationRunnerEnabled() bool {
	return c.isEnabled(ServiceModeNotificationRunner)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.isEnabled(ServiceModeReaper) }
