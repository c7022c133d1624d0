package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultCSRFCookieName  = "csrf_token"
	DefaultCSRFHeaderName  = "X-Csrf-Token"
	DefaultCSRFTokenLength = 32

	csrfCookieTTL = 12 * time.Hour
)

var errCSRFMismatch = errors.New("CSRF token validation failed")

// CSRFConfig configures CSRFProtection. Zero fields take the defaults above.
type CSRFConfig struct {
	CookieName   string
	HeaderName   string
	CookieDomain string
	TokenLength  int
}

type csrfGuard struct {
	cfg CSRFConfig
}

// CSRFProtection implements double-submit tokens. Any request without the
// cookie is issued one; unsafe methods must echo it in the header.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = DefaultCSRFTokenLength
	}
	g := csrfGuard{cfg: cfg}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.ensureToken(w, r)
			if err != nil {
				fail(w, http.StatusInternalServerError, "internal", err.Error())
				return
			}
			if !safeMethod(r.Method) && !g.matches(r, token) {
				fail(w, http.StatusForbidden, "csrf_failed", errCSRFMismatch.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ensureToken returns the cookie token, minting and setting a new one when absent.
func (g csrfGuard) ensureToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	buf := make([]byte, g.cfg.TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.cfg.CookieDomain,
		HttpOnly: false, // read by the frontend to echo the header
		Secure:   r.TLS != nil || isForwardedHTTPS(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfCookieTTL.Seconds()),
	})
	return token, nil
}

func (g csrfGuard) matches(r *http.Request, token string) bool {
	header := r.Header.Get(g.cfg.HeaderName)
	if header == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(token)) == 1
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// isForwardedHTTPS accepts comma separated X-Forwarded-Proto chains.
func isForwardedHTTPS(r *http.Request) bool {
	for proto := range strings.SplitSeq(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
