package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/joe-pages/internal/api"
	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/build"
	"github.com/joestump/joe-pages/internal/config"
	"github.com/joestump/joe-pages/internal/db"
	"github.com/joestump/joe-pages/internal/handler"
	"github.com/joestump/joe-pages/internal/logging"
	"github.com/joestump/joe-pages/internal/metrics"
	"github.com/joestump/joe-pages/internal/pages"
	"github.com/joestump/joe-pages/internal/store"
)

const pageCountInterval = time.Minute

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting", zap.String("build", build.String()))

	database, err := db.New(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database, cfg.DB.Driver); err != nil {
		return err
	}

	tokens, err := auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenLifetime)
	if err != nil {
		return err
	}
	cookies := auth.CookiePolicy{Mode: cfg.Auth.CookieSecure, Lifetime: cfg.Auth.TokenLifetime}

	pageStore := store.NewPageStore(database)
	userStore := store.NewUserStore(database)

	var oidcHandlers *auth.Handlers
	if cfg.OIDCEnabled() {
		provider, err := auth.NewProvider(ctx, auth.OIDCConfig{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
		})
		if err != nil {
			return err
		}
		oidcHandlers = auth.NewHandlers(provider, userStore, tokens, cookies, logger.Named("oidc"))
		logger.Info("oidc sign-in enabled", zap.String("issuer", cfg.OIDC.Issuer))
	}

	limiter := api.NewRateLimiter(api.RateLimiterConfig{
		PerMinute: cfg.RateLimit.ProbePerMinute,
		Burst:     cfg.RateLimit.ProbeBurst,
	})
	defer limiter.Stop()

	router := handler.NewRouter(handler.Deps{
		API: api.Deps{
			Auth:      auth.NewMiddleware(tokens),
			Tokens:    tokens,
			Cookies:   cookies,
			Pages:     pages.NewService(pageStore, nil),
			PageStore: pageStore,
			UserStore: userStore,
			Limiter:   limiter,
			Logger:    logger.Named("api"),
		},
		OIDC:   oidcHandlers,
		Ping:   database.PingContext,
		Logger: logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		trackPageCount(gctx, pageStore, logger)
		return nil
	})

	return g.Wait()
}

// trackPageCount refreshes the pages gauge until ctx is done.
func trackPageCount(ctx context.Context, ps *store.PageStore, logger *zap.Logger) {
	ticker := time.NewTicker(pageCountInterval)
	defer ticker.Stop()
	for {
		n, err := ps.Count(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("count pages", zap.Error(err))
		} else if err == nil {
			metrics.PagesTotal.Set(float64(n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
