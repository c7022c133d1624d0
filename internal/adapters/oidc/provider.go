// Package oidc signs users in against an OpenID Connect IdP.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/ports"
)

const (
	wellKnownSuffix = "/.well-known/openid-configuration"
	defaultGroups   = "groups"
	// fallbackTTL applies when the token response carries no expiry.
	fallbackTTL = time.Hour
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	// DiscoveryURL may be the issuer or its well-known document.
	DiscoveryURL string
	LogoutURL    string
	// GroupsClaim is a JMESPath over the claims. Empty means "groups".
	GroupsClaim string
	HTTPClient  *http.Client
}

func (c ProviderConfig) validate() error {
	for _, f := range []struct{ value, name string }{
		{c.ClientID, "client ID"},
		{c.ClientSecret, "client secret"},
		{c.RedirectURL, "redirect URL"},
		{c.DiscoveryURL, "discovery URL"},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return nil
}

// Provider implements ports.AuthProvider.
type Provider struct {
	oauth     *oauth2.Config
	op        *gooidc.Provider
	verifier  *gooidc.IDTokenVerifier
	client    *http.Client
	groups    string
	logoutURL string
}

// NewProvider fetches the discovery document once.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	groups := strings.TrimSpace(cfg.GroupsClaim)
	if groups == "" {
		groups = defaultGroups
	}
	if _, err := jmespath.Compile(groups); err != nil {
		return nil, fmt.Errorf("invalid groups claim expression: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(strings.TrimSuffix(cfg.DiscoveryURL, "/"), wellKnownSuffix)
	op, err := gooidc.NewProvider(gooidc.ClientContext(context.Background(), client), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		op:        op,
		verifier:  op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		client:    client,
		groups:    groups,
		logoutURL: cfg.LogoutURL,
	}, nil
}

func (p *Provider) LogoutURL() string { return p.logoutURL }

func (p *Provider) Begin(_ context.Context, redirectURL string) (ports.LoginChallenge, error) {
	if redirectURL == "" {
		return ports.LoginChallenge{}, errors.New("redirect URL is required")
	}
	var ch ports.LoginChallenge
	for _, dst := range []*string{&ch.State, &ch.Nonce} {
		v, err := randomToken()
		if err != nil {
			return ports.LoginChallenge{}, fmt.Errorf("generate login challenge: %w", err)
		}
		*dst = v
	}
	ch.AuthURL = p.oauth.AuthCodeURL(ch.State,
		oauth2.SetAuthURLParam("nonce", ch.Nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return ch, nil
}

// Exchange redeems the code. Claims come from the verified ID token when the
// openid scope is requested, and UserInfo fills whatever is still missing.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.client)
	tok, err := p.oauth.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	var prof profile
	if slices.Contains(p.oauth.Scopes, gooidc.ScopeOpenID) {
		if prof, err = p.fromIDToken(ctx, tok, in.Nonce); err != nil {
			return domainauth.Identity{}, err
		}
	}
	if prof.incomplete() {
		extra, uiErr := p.fromUserInfo(ctx, tok)
		if uiErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
		}
		prof.fill(extra)
	}

	expires := tok.Expiry
	if expires.IsZero() {
		expires = time.Now().Add(fallbackTTL)
	}
	return prof.identity(expires), nil
}

func (p *Provider) fromIDToken(ctx context.Context, tok *oauth2.Token, nonce string) (profile, error) {
	raw, err := rawIDToken(tok)
	if err != nil {
		return profile{}, err
	}
	idTok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return profile{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != nonce {
		return profile{}, errors.New("invalid nonce")
	}
	var claims claimSet
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return profile{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return readProfile(claims, p.groups)
}

func (p *Provider) fromUserInfo(ctx context.Context, tok *oauth2.Token) (profile, error) {
	ui, err := p.op.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return profile{}, err
	}
	var claims claimSet
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return profile{}, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return readProfile(claims, p.groups)
}

func rawIDToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	if s, ok := tok.Extra("id_token").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing id_token in token response")
}

// randomToken returns 43 URL-safe characters from 32 random bytes.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
