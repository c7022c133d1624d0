package config

import (
	"fmt"
	"slices"
	"strings"
)

// AuthMode selects the login provider.
type AuthMode string

const (
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock signs everyone in as the DEV_AUTH_* identity. Refused outside dev.
	AuthModeMock AuthMode = "mock"
)

var authModes = []AuthMode{AuthModeOAuth, AuthModeMock}

func (a *AuthMode) UnmarshalText(text []byte) error {
	mode := AuthMode(strings.ToLower(strings.TrimSpace(string(text))))
	if !slices.Contains(authModes, mode) {
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", string(text))
	}
	*a = mode
	return nil
}

type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"unevent-api"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
	// GroupsClaim is a JMESPath over the ID token claims, such as
	// "groups" or "realm_access.roles".
	GroupsClaim string `env:"GROUPS_CLAIM" envDefault:"groups"`
}

// Missing names the settings OIDC cannot start without, in env var form.
func (o OAuthConfig) Missing() []string {
	var out []string
	for name, v := range map[string]string{
		"OAUTH_DISCOVERY_URL": o.DiscoveryURL,
		"OAUTH_CLIENT_ID":     o.ClientID,
		"OAUTH_CLIENT_SECRET": o.ClientSecret,
	} {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// DevAuthConfig is the identity AUTH_MODE=mock signs in as.
type DevAuthConfig struct {
	UserID string   `env:"USER_ID" envDefault:"dev-user"`
	Email  string   `env:"EMAIL"   envDefault:"dev@unevent.ro"`
	Groups []string `env:"GROUPS"  envDefault:"unevent-admins" envSeparator:";"`
}

type AuthConfig struct {
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// IdP groups granting the admin and user roles. Everyone else is a guest.
	AdminGroup string `env:"ADMIN_GROUP,required"`
	UserGroup  string `env:"USER_GROUP,required"`
}
