// AngelaMos | 2026
// store.go

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Hiranx/WorldCountries/internal/admin"
	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/health"
	"github.com/Hiranx/WorldCountries/internal/migrations"
	"github.com/Hiranx/WorldCountries/internal/user"
)

// store bundles the user repository with the hooks the health and admin
// handlers need for whichever backend is configured.
type store struct {
	backend string
	repo    user.Repository
	checker health.Checker
	stats   admin.HandlerConfig
	close   func(ctx context.Context) error
}

func openStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (*store, error) {
	if cfg.Driver == config.DriverMongo {
		return openMongoStore(ctx, cfg, logger)
	}

	db, err := core.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newSQLStore(ctx, db, cfg.Migrate, logger)
}

func newSQLStore(
	ctx context.Context,
	db *core.Database,
	migrate bool,
	logger *slog.Logger,
) (*store, error) {
	if migrate {
		if err := migrations.Up(ctx, db.DB.DB, db.Dialect); err != nil {
			_ = db.Close() //nolint:errcheck // cleanup on migration failure
			return nil, err
		}

		version, err := migrations.Version(ctx, db.DB.DB, db.Dialect)
		if err != nil {
			_ = db.Close() //nolint:errcheck // cleanup on migration failure
			return nil, err
		}
		logger.Info("database migrated",
			"dialect", db.Dialect,
			"version", version,
		)
	}

	return &store{
		backend: db.Dialect,
		repo:    user.NewRepository(db.DB),
		checker: db,
		stats: admin.HandlerConfig{
			Backend:   db.Dialect,
			SQLStats:  db.Stats,
			StorePing: db.Ping,
		},
		close: func(context.Context) error { return db.Close() },
	}, nil
}

func openMongoStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (*store, error) {
	m, err := core.NewMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := user.EnsureMongoIndexes(ctx, m.DB); err != nil {
		_ = m.Close(ctx) //nolint:errcheck // cleanup on index failure
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("mongo indexes ensured", "database", cfg.Name)

	return &store{
		backend: config.DriverMongo,
		repo:    user.NewMongoRepository(m.DB),
		checker: m,
		stats: admin.HandlerConfig{
			Backend:    config.DriverMongo,
			MongoStats: m.Stats,
			StorePing:  m.Ping,
		},
		close: m.Close,
	}, nil
}
