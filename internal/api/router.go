// Package api serves the JSON API mounted at /api.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/pages"
	"github.com/joestump/joe-pages/internal/store"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	Auth      *auth.Middleware
	Tokens    *auth.Tokens
	Cookies   auth.CookiePolicy
	Pages     *pages.Service
	PageStore *store.PageStore
	UserStore *store.UserStore
	// Limiter throttles availability checks; nil disables throttling.
	Limiter *RateLimiter
	Logger  *zap.Logger
}

// NewAPIRouter creates the chi sub-router mounted at /api. Every response is
// application/json.
func NewAPIRouter(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(jsonContentType)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", CodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", CodeBadRequest)
	})

	public := r.With()
	private := r.With(deps.Auth.Authenticate)
	registerAuthRoutes(public, private, deps.UserStore, deps.Tokens, deps.Cookies, logger)
	registerPageRoutes(public, private, deps.Pages, deps.PageStore, deps.Limiter, logger)

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
