// Package handler assembles the root HTTP router: middleware, operational
// endpoints, the /api sub-router, the optional OIDC flow and the public
// HTML pages.
package handler

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/joestump/joe-pages/docs/swagger"
	"github.com/joestump/joe-pages/internal/api"
	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/logging"
	"github.com/joestump/joe-pages/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	API api.Deps
	// OIDC serves /auth/login and /auth/callback; nil disables federated sign-in.
	OIDC *auth.Handlers
	// Ping reports database health for /healthz.
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
}

// NewRouter assembles the full chi router with all middleware and routes.
// Named routes are registered before the /{slug} catch-all.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.API.Logger == nil {
		deps.API.Logger = logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))

	r.Get("/healthz", healthz(deps.Ping))
	r.Handle("/metrics", promhttp.Handler())

	if deps.OIDC != nil {
		r.Get("/auth/login", deps.OIDC.Login)
		r.Get("/auth/callback", deps.OIDC.Callback)
	}

	optional := r.With(deps.API.Auth.Optional)
	optional.Get("/", NewLandingHandler(deps.OIDC != nil, logger).Index)

	r.Get("/api/docs/*", httpSwagger.WrapHandler)
	r.Mount("/api", api.NewAPIRouter(deps.API))

	profiles := NewProfileHandler(deps.API.PageStore, logger)
	optional.Get("/{slug}", profiles.Show)

	return r
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
