// Package auth issues and verifies identity tokens, negotiates the token
// cookie, hashes passwords and runs the optional OIDC sign-in flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/joestump/joe-pages/internal/metrics"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// Middleware resolves the requester from the token cookie or, failing
// that, an Authorization: Bearer header.
type Middleware struct {
	tokens *Tokens
}

func NewMiddleware(t *Tokens) *Middleware {
	return &Middleware{tokens: t}
}

// Authenticate rejects requests without a valid token with 401
// {"error":"unauthorized","code":"UNAUTHORIZED"}. On success the Identity
// is on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.identify(r)
		if !ok {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches the Identity when a valid token is present and passes
// anonymous requests through untouched.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.identify(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) identify(r *http.Request) (Identity, bool) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Identity{}, false
	}
	id, err := m.tokens.Verify(raw)
	if err != nil {
		result := "invalid"
		if errors.Is(err, ErrTokenExpired) {
			result = "expired"
		}
		metrics.AuthEventsTotal.WithLabelValues("verify", result).Inc()
		return Identity{}, false
	}
	return id, true
}

// tokenFromRequest prefers the cookie over the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// IdentityFromContext retrieves the authenticated requester, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(Identity)
	return id, ok
}

// writeUnauthorized writes the 401 body shared by every protected route.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
}
