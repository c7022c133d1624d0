package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/unevent/unevent-api/internal/ports"
)

// fakeIdP serves discovery, token and userinfo from one httptest server.
type fakeIdP struct {
	*httptest.Server
	userInfo map[string]any
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{userInfo: map[string]any{
		"sub":         "sub-42",
		"email":       "ana@unevent.ro",
		"given_name":  "Ana",
		"family_name": "Pop",
		"groups":      []string{"unevent-users"},
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{
			"issuer":                 idp.URL,
			"authorization_endpoint": idp.URL + "/auth",
			"token_endpoint":         idp.URL + "/token",
			"userinfo_endpoint":      idp.URL + "/userinfo",
			"jwks_uri":               idp.URL + "/jwks",
		})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 600})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, idp.userInfo)
	})
	idp.Server = httptest.NewServer(mux)
	t.Cleanup(idp.Close)
	return idp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (idp *fakeIdP) config(scope string) ProviderConfig {
	return ProviderConfig{
		ClientID:     "unevent-api",
		ClientSecret: "s3cret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        scope,
		DiscoveryURL: idp.URL + wellKnownSuffix,
		LogoutURL:    idp.URL + "/logout",
	}
}

func TestNewProvider(t *testing.T) {
	idp := newFakeIdP(t)

	p, err := NewProvider(idp.config("openid email"))
	require.NoError(t, err)
	assert.Equal(t, idp.URL+"/auth", p.oauth.Endpoint.AuthURL)
	assert.Equal(t, idp.URL+"/token", p.oauth.Endpoint.TokenURL)
	assert.Equal(t, defaultGroups, p.groups)
	assert.Equal(t, idp.URL+"/logout", p.LogoutURL())

	var _ ports.AuthProvider = p
}

func TestNewProvider_Rejects(t *testing.T) {
	valid := ProviderConfig{
		ClientID:     "c",
		ClientSecret: "s",
		RedirectURL:  "http://localhost/cb",
		DiscoveryURL: "http://127.0.0.1:1",
	}
	tests := map[string]struct {
		mutate func(*ProviderConfig)
		want   string
	}{
		"client id":     {func(c *ProviderConfig) { c.ClientID = "" }, "client ID is required"},
		"client secret": {func(c *ProviderConfig) { c.ClientSecret = " " }, "client secret is required"},
		"redirect":      {func(c *ProviderConfig) { c.RedirectURL = "" }, "redirect URL is required"},
		"discovery":     {func(c *ProviderConfig) { c.DiscoveryURL = "" }, "discovery URL is required"},
		"groups expr":   {func(c *ProviderConfig) { c.GroupsClaim = "realm_access.[" }, "invalid groups claim expression"},
		"unreachable":   {func(*ProviderConfig) {}, "oidc discovery"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewProvider(cfg)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	p, err := NewProvider(newFakeIdP(t).config("openid"))
	require.NoError(t, err)

	ch, err := p.Begin(context.Background(), "http://localhost:8080/auth/callback")
	require.NoError(t, err)
	assert.Len(t, ch.State, 43)
	assert.Len(t, ch.Nonce, 43)
	assert.NotEqual(t, ch.State, ch.Nonce)

	u, err := url.Parse(ch.AuthURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "unevent-api", q.Get("client_id"))
	assert.Equal(t, ch.State, q.Get("state"))
	assert.Equal(t, ch.Nonce, q.Get("nonce"))
	assert.Equal(t, "code", q.Get("response_type"))

	_, err = p.Begin(context.Background(), "")
	require.ErrorContains(t, err, "redirect URL is required")
}

func TestProvider_Exchange_UserInfo(t *testing.T) {
	idp := newFakeIdP(t)
	p, err := NewProvider(idp.config("profile email"))
	require.NoError(t, err)

	before := time.Now()
	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "sub-42", id.UserID)
	assert.Equal(t, "ana@unevent.ro", id.Email)
	assert.Equal(t, "Ana", id.FirstName)
	assert.Equal(t, "Pop", id.LastName)
	assert.Equal(t, []string{"unevent-users"}, id.Groups)
	assert.WithinDuration(t, before.Add(10*time.Minute), id.ExpiresAt, time.Minute)
}

func TestProvider_Exchange_Errors(t *testing.T) {
	idp := newFakeIdP(t)
	withOpenID, err := NewProvider(idp.config("openid email"))
	require.NoError(t, err)
	withoutOpenID, err := NewProvider(idp.config("email"))
	require.NoError(t, err)

	tests := []struct {
		name string
		p    *Provider
		in   ports.ExchangeInput
		want string
	}{
		{"missing code", withOpenID, ports.ExchangeInput{State: "s", Nonce: "n"}, "authorization code is required"},
		{"missing state", withOpenID, ports.ExchangeInput{Code: "c", Nonce: "n"}, "state is required"},
		{"missing nonce", withOpenID, ports.ExchangeInput{Code: "c", State: "s"}, "nonce is required"},
		{"bad code", withoutOpenID, ports.ExchangeInput{Code: "bad", State: "s", Nonce: "n"}, "exchange code for token"},
		{"no id_token", withOpenID, ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"}, "missing id_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Exchange(context.Background(), tt.in)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRawIDToken(t *testing.T) {
	raw, err := rawIDToken((&oauth2.Token{}).WithExtra(map[string]any{"id_token": "a.b.c"}))
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", raw)

	_, err = rawIDToken((&oauth2.Token{}).WithExtra(map[string]any{"other": "x"}))
	require.ErrorContains(t, err, "missing id_token")
	_, err = rawIDToken(nil)
	require.ErrorContains(t, err, "nil token")
}
