// Package devauth is the AUTH_MODE=mock login provider. It never leaves the
// process: Begin points the browser at the local callback and Exchange
// returns a fixed identity.
package devauth

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"time"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/ports"
)

const (
	defaultSessionTTL   = 8 * time.Hour
	defaultCallbackPath = "/auth/callback"
	challengeLen        = 24
)

type Config struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Groups    []string
	// SessionDuration defaults to 8h.
	SessionDuration time.Duration
	// CallbackPath defaults to /auth/callback.
	CallbackPath string
}

type Provider struct {
	identity domainauth.Identity
	ttl      time.Duration
	callback string
	now      func() time.Time
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider requires UserID and Email.
func NewProvider(cfg Config) (*Provider, error) {
	switch {
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	}
	p := &Provider{
		identity: domainauth.Identity{
			UserID:    cfg.UserID,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Email:     cfg.Email,
			Groups:    append([]string(nil), cfg.Groups...),
		},
		ttl:      cfg.SessionDuration,
		callback: cfg.CallbackPath,
		now:      time.Now,
	}
	if p.ttl <= 0 {
		p.ttl = defaultSessionTTL
	}
	if p.callback == "" {
		p.callback = defaultCallbackPath
	}
	return p, nil
}

// Begin ignores redirectURL; the post-login target rides in a cookie.
func (p *Provider) Begin(_ context.Context, _ string) (ports.LoginChallenge, error) {
	ch := ports.LoginChallenge{State: rand.Text()[:challengeLen], Nonce: rand.Text()[:challengeLen]}
	q := url.Values{"code": {"dev"}, "state": {ch.State}}
	ch.AuthURL = p.callback + "?" + q.Encode()
	return ch, nil
}

// Exchange only checks that a code is present; the HTTP layer has already
// matched state and nonce.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	id.ExpiresAt = p.now().Add(p.ttl)
	return id, nil
}
