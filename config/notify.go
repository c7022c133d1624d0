package config

import (
	"strings"
	"time"
)

// DefaultHardDeleteRetention is about six months.
const DefaultHardDeleteRetention = 4380 * time.Hour

// NotifyConfig holds the values notification hooks put into payloads.
type NotifyConfig struct {
	// AdminRecipients receive admin.listing.pending; comma-separated.
	AdminRecipients []string `env:"ADMIN_RECIPIENTS" envSeparator:","`
	// DashboardBaseURL prefixes admin dashboard links.
	DashboardBaseURL string `env:"DASHBOARD_BASE_URL" envDefault:"http://localhost:3000/admin"`
	// FrontendBaseURL prefixes public listing and claim links.
	FrontendBaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000"`
	SupportEmail    string `env:"SUPPORT_EMAIL"     envDefault:"support@unevent.ro"`
	// MaxRetries is the delivery attempt limit of a notification job.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"5"`
}

// Sanitize trims recipients and URLs.
func (c *NotifyConfig) Sanitize() {
	recipients := c.AdminRecipients[:0]
	for _, r := range c.AdminRecipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	c.AdminRecipients = recipients
	c.DashboardBaseURL = strings.TrimRight(strings.TrimSpace(c.DashboardBaseURL), "/")
	c.FrontendBaseURL = strings.TrimRight(strings.TrimSpace(c.FrontendBaseURL), "/")
	c.SupportEmail = strings.TrimSpace(c.SupportEmail)
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
}

// RevalidateConfig configures the frontend sitemap revalidation call.
// Revalidation is disabled when URL or Secret is empty.
type RevalidateConfig struct {
	URL      string        `env:"URL"`
	Secret   string        `env:"SECRET"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"5s"`
	Debounce time.Duration `env:"DEBOUNCE" envDefault:"10s"`
}

// Enabled reports whether both URL and secret are set.
func (c *RevalidateConfig) Enabled() bool {
	return c.URL != "" && c.Secret != ""
}

// Sanitize normalises values.
func (c *RevalidateConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Secret = strings.TrimSpace(c.Secret)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Debounce < 0 {
		c.Debounce = 0
	}
}

// ModerationConfig configures the deletion guard and listing purge.
type ModerationConfig struct {
	// HardDeleteRetention is how long a listing must stay soft deleted before
	// a non-admin may hard delete it, and before the reaper purges it.
	HardDeleteRetention time.Duration `env:"HARD_DELETE_RETENTION" envDefault:"4380h"`
	// MediaConcurrency bounds parallel media retention updates per write.
	MediaConcurrency int `env:"MEDIA_CONCURRENCY" envDefault:"8"`
}

// Sanitize applies guardrails.
func (c *ModerationConfig) Sanitize() {
	if c.HardDeleteRetention <= 0 {
		c.HardDeleteRetention = DefaultHardDeleteRetention
	}
	if c.MediaConcurrency < 1 {
		c.MediaConcurrency = 1
	}
}

// MailerConfig configures the transactional mail HTTP API.
type MailerConfig struct {
	Endpoint   string        `env:"ENDPOINT"`
	APIKey     string        `env:"API_KEY"`
	From       string        `env:"FROM"        envDefault:"UN:EVENT <no-reply@unevent.ro>"`
	ReplyTo    string        `env:"REPLY_TO"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"10s"`
	RetryLimit int           `env:"RETRY_LIMIT" envDefault:"3"`
	// DryRun logs messages instead of sending them.
	DryRun bool `env:"DRY_RUN" envDefault:"false"`
}

// Sanitize applies guardrails.
func (c *MailerConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Endpoint == "" {
		c.DryRun = true
	}
}
