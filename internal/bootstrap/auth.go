package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/adapters/authroles"
	"github.com/unevent/unevent-api/internal/adapters/devauth"
	"github.com/unevent/unevent-api/internal/adapters/oidc"
	redisadapter "github.com/unevent/unevent-api/internal/adapters/redis"
	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
	"github.com/unevent/unevent-api/internal/service"
)

const sessionKeyPrefix = "unevent:session:"

var errUnsupportedMode = errors.New("unsupported auth mode")

type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Accounts    core.AccountRepository
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// BuildAuthService returns nil, after logging why, when sessions have nowhere
// to live or the provider for AUTH_MODE cannot be built. The API then serves
// without an actor.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.RedisClient == nil {
		log.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		return nil
	}
	prov, err := newAuthProvider(cfg.Auth)
	if err != nil {
		log.Warn("auth service disabled", "mode", cfg.Auth.Mode, "error", err)
		return nil
	}

	sessions := redisadapter.NewSessionStore(cfg.RedisClient, redisadapter.SessionStoreOptions{Prefix: sessionKeyPrefix})
	return service.NewAuthService(service.AuthServiceOptions{
		Provider: prov,
		Sessions: sessions,
		Roles:    authroles.StaticRoleMapper{AdminGroup: cfg.Auth.AdminGroup, UserGroup: cfg.Auth.UserGroup},
		Accounts: cfg.Accounts,
		Metrics:  cfg.Metrics,
	})
}

//nolint:ireturn // callers only need the provider port.
func newAuthProvider(auth config.AuthConfig) (ports.AuthProvider, error) {
	switch auth.Mode {
	case config.AuthModeMock:
		d := auth.DevAuth
		return devauth.NewProvider(devauth.Config{UserID: d.UserID, Email: d.Email, Groups: d.Groups})
	case config.AuthModeOAuth:
		o := auth.OAuth
		if missing := o.Missing(); len(missing) > 0 {
			return nil, fmt.Errorf("oauth config incomplete, missing %s", strings.Join(missing, ", "))
		}
		return oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  o.RedirectURL,
			Scope:        o.Scope,
			DiscoveryURL: o.DiscoveryURL,
			LogoutURL:    o.LogoutURL,
			GroupsClaim:  o.GroupsClaim,
		})
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedMode, auth.Mode)
	}
}
