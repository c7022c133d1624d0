package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - notification-runner",
			input:    "notification-runner",
			expected: map[ServiceMode]bool{ServiceModeNotificationRunner: true},
		},
		{
			name:  "all services with spaces",
			input: " http , notification-runner , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:               true,
				ServiceModeNotificationRunner: true,
				ServiceModeReaper:             true,
			},
		},
		{
			name:     "duplicate services",
			input:    "http,http,reaper",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeReaper: true},
		},
		{name: "empty string", input: "", expectError: true},
		{name: "only spaces and commas", input: " , , ", expectError: true},
		{name: "invalid service name", input: "http,scheduler", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := &AppConfig{Services: "http,reaper"}
	if !cfg.IsHTTPServerEnabled() {
		t.Error("expected http enabled")
	}
	if !cfg.IsReaperEnabled() {
		t.Error("expected reaper enabled")
	}
	if cfg.IsNotificationRunnerEnabled() {
		t.Error("expected notification runner disabled")
	}

	bad := &AppConfig{Services: "nope"}
	if bad.IsHTTPServerEnabled() || bad.IsReaperEnabled() || bad.IsNotificationRunnerEnabled() {
		t.Error("invalid SERVICES must disable everything")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	if len(modes) != 3 {
		t.Fatalf("expected 3 modes, got %d", len(modes))
	}
	for _, m := range modes {
		if _, err := ParseServices(string(m)); err != nil {
			t.Errorf("mode %q does not parse: %v", m, err)
		}
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "oauth")
	t.Setenv("ADMIN_GROUP", "unevent-admins")
	t.Setenv("USER_GROUP", "unevent-users")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_GROUPS_CLAIM", "realm_access.roles")
	t.Setenv("DEV_AUTH_GROUPS", "admins;devs")
	t.Setenv("NOTIFY_ADMIN_RECIPIENTS", "admin@unevent.ro, ops@unevent.ro,")
	t.Setenv("NOTIFY_FRONTEND_BASE_URL", "https://unevent.ro/")
	t.Setenv("REVALIDATE_URL", "https://unevent.ro/api/revalidate")
	t.Setenv("REVALIDATE_SECRET", "s3cret")
	t.Setenv("MODERATION_HARD_DELETE_RETENTION", "720h")
	t.Setenv("NOTIFICATION_RUNNER_CONCURRENCY", "4")
	t.Setenv("REAPER_TEMP_MEDIA_TTL", "48h")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeOAuth {
		t.Errorf("Auth.Mode = %q", cfg.Auth.Mode)
	}
	if cfg.Auth.OAuth.ClientID != "app-client" || cfg.Auth.OAuth.GroupsClaim != "realm_access.roles" {
		t.Errorf("OAuth = %+v", cfg.Auth.OAuth)
	}
	if !reflect.DeepEqual(cfg.Auth.DevAuth.Groups, []string{"admins", "devs"}) {
		t.Errorf("DevAuth.Groups = %v", cfg.Auth.DevAuth.Groups)
	}
	if !reflect.DeepEqual(cfg.Notify.AdminRecipients, []string{"admin@unevent.ro", "ops@unevent.ro"}) {
		t.Errorf("AdminRecipients = %q", cfg.Notify.AdminRecipients)
	}
	if cfg.Notify.FrontendBaseURL != "https://unevent.ro" {
		t.Errorf("FrontendBaseURL = %q", cfg.Notify.FrontendBaseURL)
	}
	if !cfg.Revalidate.Enabled() {
		t.Error("expected revalidation enabled")
	}
	if cfg.Moderation.HardDeleteRetention != 720*time.Hour {
		t.Errorf("HardDeleteRetention = %v", cfg.Moderation.HardDeleteRetention)
	}
	if cfg.NotificationRunner.Concurrency != 4 {
		t.Errorf("NotificationRunner.Concurrency = %d", cfg.NotificationRunner.Concurrency)
	}
	if cfg.Reaper.TempMediaTTL != 48*time.Hour {
		t.Errorf("TempMediaTTL = %v", cfg.Reaper.TempMediaTTL)
	}
	if !cfg.Mailer.DryRun {
		t.Error("mailer without endpoint must be dry run")
	}
}

func TestModerationConfig_Sanitize(t *testing.T) {
	c := ModerationConfig{}
	c.Sanitize()
	if c.HardDeleteRetention != DefaultHardDeleteRetention {
		t.Errorf("HardDeleteRetention = %v", c.HardDeleteRetention)
	}
	if c.MediaConcurrency != 1 {
		t.Errorf("MediaConcurrency = %d", c.MediaConcurrency)
	}
}

func TestReaperConfig_Sanitize(t *testing.T) {
	r := ReaperConfig{Interval: time.Second, BatchSize: 50000}
	r.Sanitize()
	if r.Interval != time.Minute {
		t.Errorf("Interval = %v", r.Interval)
	}
	if r.BatchSize != 10000 {
		t.Errorf("BatchSize = %d", r.BatchSize)
	}
	if r.TempMediaTTL != time.Hour {
		t.Errorf("TempMediaTTL = %v", r.TempMediaTTL)
	}
}

func TestRevalidateConfig_Disabled(t *testing.T) {
	c := RevalidateConfig{URL: " https://x ", Secret: "  "}
	c.Sanitize()
	if c.Enabled() {
		t.Error("revalidation without secret must be disabled")
	}
}

func TestAlertsConfig_Sanitize(t *testing.T) {
	cfg := AlertsConfig{
		Enabled:   true,
		Slack:     SlackAlertConfig{Enabled: true, WebhookURL: "  "},
		PagerDuty: PagerDutyAlertConfig{Enabled: true, RoutingKey: "rk", Source: " "},
	}
	cfg.Sanitize()
	if cfg.Slack.Enabled {
		t.Error("expected slack to be disabled without a webhook url")
	}
	if !cfg.PagerDuty.Enabled {
		t.Error("expected pagerduty to stay enabled with a routing key")
	}
	if cfg.PagerDuty.Source != defaultAlertSource {
		t.Errorf("PagerDuty.Source = %q", cfg.PagerDuty.Source)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}

	off := AlertsConfig{Slack: SlackAlertConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/x"}}
	off.Sanitize()
	if off.Slack.Enabled {
		t.Error("expected slack to be disabled when alerts are disabled")
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	cfg := DBConfig{MaxOpenConns: 0, MaxIdleConns: 10, ConnMaxLifetime: -time.Second}
	cfg.Sanitize()
	if cfg.MaxOpenConns != 1 || cfg.MaxIdleConns != 1 {
		t.Errorf("pool = open %d idle %d, want 1/1", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 0 {
		t.Errorf("ConnMaxLifetime = %v", cfg.ConnMaxLifetime)
	}
}

func TestOAuthConfig_Missing(t *testing.T) {
	got := OAuthConfig{ClientID: "unevent-api", ClientSecret: " "}.Missing()
	want := []string{"OAUTH_CLIENT_SECRET", "OAUTH_DISCOVERY_URL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
	full := OAuthConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "https://sso.unevent.ro"}
	if len(full.Missing()) != 0 {
		t.Errorf("Missing() = %v on a complete config", full.Missing())
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	var m AuthMode
	if err := m.UnmarshalText([]byte(" Mock ")); err != nil || m != AuthModeMock {
		t.Errorf("UnmarshalText(Mock) = %q, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("saml")); err == nil {
		t.Error("expected saml to be rejected")
	}
}
