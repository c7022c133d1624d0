package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/service"
)

const (
	sessionCookieName       = "session_id"
	stateCookieName         = "oauth_state"
	nonceCookieName         = "oauth_nonce"
	postLoginRedirectCookie = "post_login_redirect"

	loginCookieTTL = 10 * time.Minute
)

type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*domainauth.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ResolveActor(ctx context.Context, sess *domainauth.Session) (*domainauth.Actor, error)
}

// AuthHandlers serves /auth/* and /api/me.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// LogoutURL is where browsers land after logout, typically the IdP
	// end-session endpoint.
	LogoutURL string
	Logger    *slog.Logger
}

func (h *AuthHandlers) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func secureRequest(r *http.Request) bool { return r.TLS != nil || isForwardedHTTPS(r) }

// setCookie writes an HttpOnly Lax cookie. maxAge < 0 deletes it.
func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   secureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	if maxAge < 0 {
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w, c)
}

func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	h.setCookie(w, r, name, "", -1)
}

// Login redirects to the IdP. GET /auth/login?redirect_uri=/path
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	after := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	res, err := h.Svc.BeginLogin(r.Context(), after)
	if err != nil {
		h.log().ErrorContext(r.Context(), "begin login failed", "error", err)
		fail(w, http.StatusInternalServerError, "login_failed", "could not start login")
		return
	}
	h.setCookie(w, r, stateCookieName, res.State, loginCookieTTL)
	h.setCookie(w, r, nonceCookieName, res.Nonce, loginCookieTTL)
	h.setCookie(w, r, postLoginRedirectCookie, after, loginCookieTTL)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// Callback finishes the code flow. GET /auth/callback?code=..&state=..
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.CompleteLoginInput{Code: q.Get("code"), State: q.Get("state")}
	if c, err := r.Cookie(nonceCookieName); err == nil {
		in.Nonce = c.Value
	}
	stateCookie, _ := r.Cookie(stateCookieName)

	switch {
	case in.Code == "":
		fail(w, http.StatusBadRequest, "missing_code", "authorization code is required")
		return
	case in.State == "":
		fail(w, http.StatusBadRequest, "missing_state", "state parameter is required")
		return
	case stateCookie == nil || stateCookie.Value != in.State:
		fail(w, http.StatusBadRequest, "invalid_state", "invalid or missing state parameter")
		return
	case in.Nonce == "":
		fail(w, http.StatusBadRequest, "missing_nonce", "missing nonce parameter")
		return
	}

	sess, err := h.Svc.CompleteLogin(r.Context(), in)
	if err != nil {
		h.log().WarnContext(r.Context(), "login completion failed", "error", err)
		fail(w, http.StatusUnauthorized, "login_completion_failed", "login could not be completed")
		return
	}

	h.setCookie(w, r, sessionCookieName, sess.ID, time.Until(sess.ExpiresAt))
	h.clearCookie(w, r, stateCookieName)
	h.clearCookie(w, r, nonceCookieName)

	target := "/"
	if c, cerr := r.Cookie(postLoginRedirectCookie); cerr == nil {
		target = safeRedirectPath(c.Value)
		h.clearCookie(w, r, postLoginRedirectCookie)
	}
	h.log().InfoContext(r.Context(), "user logged in", "user_id", sess.UserID, "role", sess.Role)
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout ends the session. XHR callers get the redirect target as JSON.
// POST /auth/logout
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), c.Value); logoutErr != nil {
			h.log().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.clearCookie(w, r, sessionCookieName)

	target := h.LogoutURL
	if target == "" {
		target = safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

type meResponse struct {
	UserID    string          `json:"userId"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName,omitempty"`
	LastName  string          `json:"lastName,omitempty"`
	Role      domainauth.Role `json:"role"`
	AccountID string          `json:"accountId,omitempty"`
	ProfileID string          `json:"profileId,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Me describes the caller. GET /api/me
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "authentication_required", "authentication required")
		return
	}
	resp := meResponse{
		UserID:    sess.UserID,
		Email:     sess.Email,
		FirstName: sess.FirstName,
		LastName:  sess.LastName,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	}
	if a := ActorFromContext(r.Context()); a != nil {
		resp.AccountID, resp.ProfileID = a.AccountID, a.ProfileID
	}
	WriteJSON(w, http.StatusOK, resp)
}

// safeRedirectPath keeps only same-origin absolute paths and falls back to "/".
func safeRedirectPath(candidate string) string {
	if !strings.HasPrefix(candidate, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	if u, err := url.Parse(candidate); err != nil || u.Host != "" || u.IsAbs() {
		return "/"
	}
	return candidate
}
