// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hiranx/WorldCountries/internal/auth"
	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/health"
	"github.com/Hiranx/WorldCountries/internal/server"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool(
		"generate-keys",
		false,
		"write a new ES256 key pair to the configured key paths and exit",
	)
	flag.Parse()

	if *generateKeys {
		if err := writeKeys(*configPath); err != nil {
			slog.Error("key generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func writeKeys(configPath string) error {
	privatePath := os.Getenv("SESSION_PRIVATE_KEY_PATH")
	publicPath := os.Getenv("SESSION_PUBLIC_KEY_PATH")

	if privatePath == "" || publicPath == "" {
		if cfg, err := config.Load(configPath); err == nil {
			privatePath = cfg.Session.PrivateKeyPath
			publicPath = cfg.Session.PublicKeyPath
		}
	}

	if privatePath == "" || publicPath == "" {
		return errors.New(
			"SESSION_PRIVATE_KEY_PATH and SESSION_PUBLIC_KEY_PATH are required",
		)
	}

	if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
		return err
	}

	slog.Info("session key pair written",
		"private_key", privatePath,
		"public_key", publicPath,
	)
	return nil
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	logger.Info("user store connected",
		"driver", st.backend,
		"max_open_conns", cfg.Database.MaxOpenConns,
	)

	issuer, err := auth.NewIssuer(cfg.Session)
	if err != nil {
		_ = st.close(ctx) //nolint:errcheck // cleanup on startup failure
		return err
	}
	logger.Info("session issuer initialized",
		"algorithm", issuer.Algorithm(),
		"key_id", issuer.KeyID(),
		"expire", cfg.Session.Expire.String(),
	)

	healthHandler := health.NewHandler(health.Dependency{
		Name:    st.backend,
		Checker: st.checker,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	useMiddleware(router, cfg, logger)
	mountRoutes(router, cfg, st, issuer, healthHandler, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		_ = st.close(context.Background()) //nolint:errcheck // listener already failed
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := st.close(shutdownCtx); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
