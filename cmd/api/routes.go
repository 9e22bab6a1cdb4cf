// AngelaMos | 2026
// routes.go

package main

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/Hiranx/WorldCountries/internal/admin"
	"github.com/Hiranx/WorldCountries/internal/auth"
	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/favorites"
	"github.com/Hiranx/WorldCountries/internal/health"
	"github.com/Hiranx/WorldCountries/internal/middleware"
	"github.com/Hiranx/WorldCountries/internal/user"
)

func useMiddleware(router chi.Router, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
}

// mountRoutes builds the services on top of st and registers every
// endpoint on router.
func mountRoutes(
	router chi.Router,
	cfg *config.Config,
	st *store,
	issuer *auth.Issuer,
	healthHandler *health.Handler,
	logger *slog.Logger,
) {
	userSvc := user.NewService(st.repo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(issuer, userSvc)
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.IsProduction(),
	})

	favoritesHandler := favorites.NewHandler(favorites.NewService(st.repo))

	adminCfg := st.stats
	adminCfg.CountUsers = func(ctx context.Context) (int, error) {
		params := user.ListUsersParams{Page: 1, PageSize: 1}
		_, total, err := userSvc.ListUsers(ctx, params)
		return total, err
	}
	adminHandler := admin.NewHandler(adminCfg)

	authenticator := middleware.Authenticator(issuer, middleware.AuthConfig{
		CookieName:          cfg.Session.CookieName,
		EnforceTokenVersion: cfg.Session.EnforceTokenVersion,
		Accounts:            userSvc,
	})
	adminOnly := middleware.RequireAdmin(userSvc)

	healthHandler.RegisterRoutes(router)
	router.Get("/.well-known/jwks.json", issuer.JWKSHandler())

	authHandler.RegisterRoutes(router)
	userHandler.RegisterRoutes(router, authenticator)
	favoritesHandler.RegisterRoutes(router, authenticator)

	if cfg.Auth.AllowUnauthenticatedReset {
		userHandler.RegisterResetRoute(router)
		logger.Warn("unauthenticated password reset endpoint enabled",
			"path", "/reset-password",
		)
	}

	userHandler.RegisterAdminRoutes(router, authenticator, adminOnly)
	adminHandler.RegisterRoutes(router, authenticator, adminOnly)
}
