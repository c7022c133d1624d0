// Package ports declares the boundaries between the listing services and
// their adapters: the identity provider, session storage and outbound side
// effects (mail, revalidation).
package ports

import (
	"context"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

// LoginChallenge is what the browser needs to start an IdP round trip.
// State and Nonce are echoed back through cookies on callback.
type LoginChallenge struct {
	AuthURL string
	State   string
	Nonce   string
}

// ExchangeInput carries the callback parameters and the stored nonce.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

type AuthProvider interface {
	Begin(ctx context.Context, redirectURL string) (LoginChallenge, error)
	// Exchange redeems the code and returns the verified identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore keeps sessions keyed by their opaque id. Stores expire
// sessions at Session.ExpiresAt.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper turns IdP group claims into an application role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
