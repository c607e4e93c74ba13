// Package main is the entry point for the Agendly billing API server.
//
// It loads configuration, connects the Postgres pool, wires the billing
// domain (catalog, initiator, reconciler, entitlement resolver) onto the
// core chassis, and serves HTTP until a shutdown signal arrives.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"agendly/internal/api/handlers"
	"agendly/internal/billing"
	"agendly/internal/config"
	"agendly/internal/core"
	"agendly/internal/db"
	"agendly/internal/external"
	"agendly/internal/security"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("agendly billing API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Build the server chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.DB = pool
	srv.RateLimitStore = security.NewSlidingWindowStore()

	// Repositories.
	subRepo := db.NewSubscriptionRepo(pool, logger)
	intentRepo := db.NewPaymentIntentRepo(pool)
	usageRepo := db.NewUsageRepo(pool)

	// Domain services.
	catalog := billing.NewStaticCatalog()
	pixClient := external.NewPixClient(
		&http.Client{Timeout: cfg.Payment.Timeout},
		external.PixClientConfig{
			APIKey:  cfg.Payment.APIKey,
			BaseURL: cfg.Payment.BaseURL,
			Logger:  logger,
		},
	)
	initiator := billing.NewInitiator(catalog, intentRepo, pixClient, logger)
	reconciler := billing.NewReconciler(subRepo, intentRepo, catalog, logger)
	resolver := billing.NewResolver(subRepo, usageRepo, catalog, logger)

	// Handlers.
	billingHandler := handlers.NewBillingHandler(initiator, resolver, subRepo, srv.Validator, logger)
	webhookHandler := handlers.NewWebhookHandler(reconciler, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) {
			billingHandler.RegisterRoutes(r, srv.Authenticate, srv.RateLimit)
		},
		webhookHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newPool creates the pgx connection pool and verifies connectivity.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// newLogger creates a structured slog.Logger. Local development gets a
// colorized tint handler; every other environment logs JSON.
func newLogger(cfg *config.Config) *slog.Logger {
	lvl := parseLevel(cfg.LogLevel)

	if cfg.IsLocal() {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      lvl,
			TimeFormat: time.DateTime,
		}))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}

// parseLevel maps the configured log level string onto a slog.Level,
// defaulting to info on unknown values.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runHTTPServer serves until SIGINT/SIGTERM, then drains in-flight requests
// within the configured shutdown timeout.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return srv.Shutdown(ctx)
}
