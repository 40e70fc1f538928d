package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName carries the identity token for browser clients.
const CookieName = "token"

// Secure cookie modes.
const (
	SecureAuto   = "auto"
	SecureAlways = "true"
	SecureNever  = "false"
)

// CookiePolicy decides how the token cookie is written.
type CookiePolicy struct {
	Mode     string
	Lifetime time.Duration
}

// Secure reports whether the cookie should carry the Secure attribute for r.
// In auto mode X-Forwarded-Proto wins over the connection's own TLS state.
func (p CookiePolicy) Secure(r *http.Request) bool {
	switch strings.ToLower(p.Mode) {
	case SecureAlways:
		return true
	case SecureNever:
		return false
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.EqualFold(strings.TrimSpace(strings.Split(proto, ",")[0]), "https")
	}
	return r.TLS != nil
}

// Set writes the token cookie.
func (p CookiePolicy) Set(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.Lifetime / time.Second),
		HttpOnly: true,
		Secure:   p.Secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the token cookie.
func (p CookiePolicy) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.Secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func setPreAuthCookie(w http.ResponseWriter, r *http.Request, p CookiePolicy, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   300, // 5 minutes
		HttpOnly: true,
		Secure:   p.Secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearPreAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/auth",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
