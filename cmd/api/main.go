package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/api"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/cache"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/config"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/database"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/ingest"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// Version is set by -ldflags at compile time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting idmatch API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("cleanup error", slog.Any("error", err))
		}
	}()

	// Each request downloads into its own directory, removed after the run
	downloadRoot := cfg.DatasetDir
	if downloadRoot == "" {
		downloadRoot = cfg.TempDir
	}
	if downloadRoot != "" {
		if err := os.MkdirAll(downloadRoot, 0o755); err != nil {
			return fmt.Errorf("failed to create dataset dir: %w", err)
		}
	}
	sources := ingest.NewRemoteSources(downloadRoot, p.Fetcher, logger)

	if p.Cache != nil {
		janitor := cache.NewJanitor(p.Cache, logger, time.Hour)
		go janitor.Start(ctx)
		defer janitor.Stop()
	}

	checks := []handler.ReadinessCheck{
		{Name: "provider", Check: func(ctx context.Context) error {
			if w, ok := p.Detector.(provider.Warmer); ok {
				return w.Warmup(ctx)
			}
			return nil
		}},
	}
	if p.Pool != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "database", Check: func(ctx context.Context) error {
			return database.HealthCheck(ctx, p.Pool)
		}})
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Verifications: p.Service,
		Sources:       sources.Source,
		ReadyChecks:   checks,
		Version:       Version,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- router.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timed out waiting for in-flight runs")
	}

	logger.Info("server stopped")
	return nil
}
