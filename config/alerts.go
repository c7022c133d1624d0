package config

import (
	"strings"
	"time"
)

const defaultAlertSource = "unevent-api"

// AlertsConfig controls ops alerts raised when a notification job exhausts
// its delivery attempts.
type AlertsConfig struct {
	Enabled    bool                 `env:"ENABLED"     envDefault:"false"`
	Timeout    time.Duration        `env:"TIMEOUT"     envDefault:"5s"`
	RetryLimit int                  `env:"RETRY_LIMIT" envDefault:"3"`
	Slack      SlackAlertConfig     `                                   envPrefix:"SLACK_"`
	PagerDuty  PagerDutyAlertConfig `                                   envPrefix:"PAGERDUTY_"`
}

// Sanitize normalises alert configuration values.
func (c *AlertsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}

	c.Slack.sanitize()
	c.PagerDuty.sanitize()

	if !c.Enabled {
		c.Slack.Enabled = false
		c.PagerDuty.Enabled = false
		return
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		c.Slack.Enabled = false
	}
	if c.PagerDuty.Enabled && c.PagerDuty.RoutingKey == "" {
		c.PagerDuty.Enabled = false
	}
}

// SlackAlertConfig controls Slack webhook fan-out.
type SlackAlertConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"unevent-api"`
}

func (c *SlackAlertConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	if c.Username = strings.TrimSpace(c.Username); c.Username == "" {
		c.Username = defaultAlertSource
	}
}

// PagerDutyAlertConfig controls PagerDuty Events API v2 fan-out.
type PagerDutyAlertConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"unevent-api"`
	Component  string `env:"COMPONENT"   envDefault:"notifications"`
}

func (c *PagerDutyAlertConfig) sanitize() {
	c.RoutingKey = strings.TrimSpace(c.RoutingKey)
	if c.Source = strings.TrimSpace(c.Source); c.Source == "" {
		c.Source = defaultAlertSource
	}
	if c.Component = strings.TrimSpace(c.Component); c.Component == "" {
		c.Component = "notifications"
	}
}
