package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/metrics"
	"github.com/joestump/joe-pages/internal/store"
)

const (
	cookieState        = "__auth_state"
	cookieCodeVerifier = "__auth_pkce"
	cookieRedirect     = "__auth_redirect"

	defaultRedirect = "/"
)

// Handlers runs the OIDC authorization code flow and ends it by issuing the
// same identity token cookie as password login.
type Handlers struct {
	provider IdentityProvider
	users    *store.UserStore
	tokens   *Tokens
	cookies  CookiePolicy
	logger   *zap.Logger
}

func NewHandlers(p IdentityProvider, us *store.UserStore, t *Tokens, cp CookiePolicy, logger *zap.Logger) *Handlers {
	return &Handlers{provider: p, users: us, tokens: t, cookies: cp, logger: logger}
}

// Login initiates the OIDC authorization code flow with PKCE.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateState()
	if err != nil {
		h.logger.Error("oidc: generate state", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		h.logger.Error("oidc: generate pkce", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	setPreAuthCookie(w, r, h.cookies, cookieState, state)
	setPreAuthCookie(w, r, h.cookies, cookieCodeVerifier, verifier)
	setPreAuthCookie(w, r, h.cookies, cookieRedirect, safeRedirect(r.URL.Query().Get("redirect")))

	http.Redirect(w, r, h.provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// Callback handles the OIDC provider redirect after authentication.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		metrics.AuthEventsTotal.WithLabelValues("oidc", "bad_state").Inc()
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	verifierCookie, err := r.Cookie(cookieCodeVerifier)
	if err != nil {
		http.Error(w, "missing code verifier", http.StatusBadRequest)
		return
	}

	claims, err := h.provider.Exchange(r.Context(), r.URL.Query().Get("code"), verifierCookie.Value)
	if err != nil {
		h.logger.Warn("oidc: exchange failed", zap.Error(err))
		metrics.AuthEventsTotal.WithLabelValues("oidc", "failure").Inc()
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := h.resolveUser(r, claims)
	if err != nil {
		if errors.Is(err, errNoEmail) || errors.Is(err, store.ErrEmailTaken) {
			metrics.AuthEventsTotal.WithLabelValues("oidc", "rejected").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("oidc: resolve user", zap.Error(err), zap.String("issuer", claims.Issuer))
		http.Error(w, "user record error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(Identity{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin})
	if err != nil {
		h.logger.Error("oidc: issue token", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.cookies.Set(w, r, token)
	metrics.AuthEventsTotal.WithLabelValues("oidc", "success").Inc()

	clearPreAuthCookie(w, cookieState)
	clearPreAuthCookie(w, cookieCodeVerifier)

	redirect := defaultRedirect
	if c, err := r.Cookie(cookieRedirect); err == nil {
		redirect = safeRedirect(c.Value)
	}
	clearPreAuthCookie(w, cookieRedirect)

	http.Redirect(w, r, redirect, http.StatusFound)
}

var errNoEmail = errors.New("identity provider did not supply an email address")

// resolveUser finds the account for an external identity. An existing local
// account is linked only when the provider vouches for the email address.
func (h *Handlers) resolveUser(r *http.Request, c *IDClaims) (*store.User, error) {
	ctx := r.Context()
	u, err := h.users.GetByIdentity(ctx, c.Issuer, c.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return nil, errNoEmail
	}
	if c.EmailVerified {
		existing, err := h.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := h.users.LinkIdentity(ctx, existing.ID, c.Issuer, c.Subject); err != nil {
				return nil, err
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = email
	}
	return h.users.CreateFederated(ctx, c.Issuer, c.Subject, name, email)
}

// safeRedirect keeps post-login redirects on this host.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return defaultRedirect
	}
	return target
}
