package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/unevent/unevent-api/internal/core"
	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	apperrors "github.com/unevent/unevent-api/internal/errors"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
)

const (
	defaultActorCacheSize = 1024
	defaultActorCacheTTL  = time.Minute
)

var errSessionExpired = errors.New("session expired")

type (
	// BeginLoginResult is handed to the browser to start the IdP round trip.
	BeginLoginResult = ports.LoginChallenge
	// CompleteLoginInput carries the callback query and the nonce cookie.
	CompleteLoginInput = ports.ExchangeInput
)

type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
	// Accounts links a session email to the caller's account and profile.
	Accounts core.AccountRepository
	// Zero values fall back to 1024 entries for one minute.
	ActorCacheSize int
	ActorCacheTTL  time.Duration
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// AuthService runs the login flow and turns sessions into listing actors.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	roles    ports.RoleMapper
	accounts core.AccountRepository
	actors   *expirable.LRU[string, domainauth.Actor]
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.ActorCacheSize <= 0 {
		opts.ActorCacheSize = defaultActorCacheSize
	}
	if opts.ActorCacheTTL <= 0 {
		opts.ActorCacheTTL = defaultActorCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		roles:    opts.Roles,
		accounts: opts.Accounts,
		actors:   expirable.NewLRU[string, domainauth.Actor](opts.ActorCacheSize, nil, opts.ActorCacheTTL),
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	ch, err := s.provider.Begin(ctx, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &ch, nil
}

// CompleteLogin redeems the callback, maps the IdP groups to a role and
// stores a new session that expires with the IdP token.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*domainauth.Session, error) {
	for _, p := range [...]struct{ value, name string }{
		{in.Code, "authorization code"},
		{in.State, "state parameter"},
		{in.Nonce, "nonce parameter"},
	} {
		if p.value == "" {
			return nil, fmt.Errorf("%s is required", p.name)
		}
	}

	id, err := s.provider.Exchange(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    id.UserID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
		Role:      s.roles.Map(id.Groups),
		ExpiresAt: id.ExpiresAt,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sess, nil
}

// GetSession deletes and rejects a session past its expiry.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !s.now().After(sess.ExpiresAt) {
		return &sess, nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", err))
	}
	return nil, errSessionExpired
}

// Logout is a no-op without a session id.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ResolveActor finds the account behind a session by email. Lookups are
// cached per email and role. No account means an actor without a profile,
// which cannot own listings.
func (s *AuthService) ResolveActor(ctx context.Context, sess *domainauth.Session) (*domainauth.Actor, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	key := actorKey(sess)
	actor, hit := s.actors.Get(key)
	if hit {
		s.metrics.ActorCache("hit")
	} else {
		s.metrics.ActorCache("miss")
		var err error
		if actor, err = s.lookupActor(ctx, sess); err != nil {
			return nil, err
		}
		s.actors.Add(key, actor)
	}
	actor.UserID = sess.UserID
	return &actor, nil
}

func (s *AuthService) lookupActor(ctx context.Context, sess *domainauth.Session) (domainauth.Actor, error) {
	actor := domainauth.Actor{UserID: sess.UserID, Email: sess.Email, Role: sess.Role}
	if s.accounts == nil || sess.Email == "" {
		return actor, nil
	}
	acct, err := s.accounts.FindByEmail(ctx, sess.Email)
	switch {
	case err == nil:
		actor.AccountID, actor.ProfileID = acct.ID, acct.ProfileID
	case !apperrors.IsNotFound(err):
		return actor, fmt.Errorf("resolve account for session: %w", err)
	}
	return actor, nil
}

func actorKey(sess *domainauth.Session) string {
	return strings.ToLower(strings.TrimSpace(sess.Email)) + "|" + string(sess.Role)
}
