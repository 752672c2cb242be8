package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	refreshSessionName = "projview_refresh"
	csrfHeader         = "X-CSRF-Token"
)

// RefreshCookie keeps the refresh token in a signed HttpOnly cookie for
// browser clients. Reading it back requires the per-session CSRF token.
type RefreshCookie struct {
	cfg   Config
	ttl   time.Duration
	store *sessions.CookieStore
}

// NewRefreshCookie returns nil when the refresh cookie is disabled. The
// cookie lives as long as the refresh tokens it carries.
func NewRefreshCookie(cfg Config, ttl time.Duration) *RefreshCookie {
	if !cfg.RefreshCookieEnabled {
		return nil
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.MaxAge(int(ttl.Seconds()))
	return &RefreshCookie{cfg: cfg, ttl: ttl, store: store}
}

// Save replaces the session contents with refreshToken and a new CSRF
// token, which is returned to the client in the X-CSRF-Token header.
func (rc *RefreshCookie) Save(c *gin.Context, refreshToken string) error {
	// a cookie that fails to decode still yields a fresh session
	session, _ := rc.store.Get(c.Request, refreshSessionName)
	csrf, err := generateCSRFToken()
	if err != nil {
		return fmt.Errorf("issue csrf token: %w", err)
	}
	session.Values = map[interface{}]interface{}{
		"refresh_token": refreshToken,
		"csrf_token":    csrf,
	}
	rc.applyOptions(session)
	if err := session.Save(c.Request, c.Writer); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	c.Header(csrfHeader, csrf)
	return nil
}

// Load returns the stored refresh token, or "" when the request carries no
// refresh session.
func (rc *RefreshCookie) Load(c *gin.Context) (string, error) {
	session, err := rc.store.Get(c.Request, refreshSessionName)
	if err != nil {
		return "", NewTokenFailure(ReasonMalformed, err)
	}
	token, _ := session.Values["refresh_token"].(string)
	if token == "" {
		return "", nil
	}
	want, _ := session.Values["csrf_token"].(string)
	got := c.GetHeader(csrfHeader)
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return "", NewForbidden("invalid csrf token")
	}
	return token, nil
}

// Clear expires the refresh session cookie.
func (rc *RefreshCookie) Clear(c *gin.Context) error {
	session, _ := rc.store.Get(c.Request, refreshSessionName)
	session.Values = map[interface{}]interface{}{}
	rc.applyOptions(session)
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}

func (rc *RefreshCookie) applyOptions(session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/api/login"
	session.Options.MaxAge = int(rc.ttl.Seconds())
	session.Options.HttpOnly = true
	session.Options.Secure = rc.cfg.CookieSecure
	session.Options.SameSite = sameSiteFromString(rc.cfg.CookieSameSite)
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
