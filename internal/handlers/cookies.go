package handlers

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/namity/backend/internal/models"
	"github.com/namity/backend/internal/verifier"
)

const (
	AccessCookieName  = verifier.DefaultCookieName
	RefreshCookieName = "refresh_token"

	// Optional client provided device name stored with refresh session
	DeviceNameHeader = "X-Device-Name"
)

type CookieConfig struct {
	// Send cookies over https only
	Secure bool
}

// Set access and refresh cookies
// Cookies live as long as tokens they carry
func setTokenCookies(w http.ResponseWriter, cfg CookieConfig, set models.TokenSet) {
	http.SetCookie(w, tokenCookie(cfg, AccessCookieName, set.Access.Value, time.Until(set.Access.ExpiresAt)))
	http.SetCookie(w, tokenCookie(cfg, RefreshCookieName, set.Refresh.Value, time.Until(set.Refresh.ExpiresAt)))
}

func clearTokenCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := tokenCookie(cfg, name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func tokenCookie(cfg CookieConfig, name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Round(time.Second).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func readRefreshCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Collect client metadata stored with refresh session
func sessionMeta(r *http.Request) models.SessionMeta {
	return models.SessionMeta{
		DeviceName: r.Header.Get(DeviceNameHeader),
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
