// Package pipeline wires the verification components from configuration.
// Both the CLI and the HTTP server build their service through it.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/cache"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/config"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/database"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/document"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/engine"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/face"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/repository"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/service"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/storage"
)

// Pipeline holds the wired service and the resources it owns.
type Pipeline struct {
	Service  *service.VerificationService
	Detector provider.FaceDetector
	Fetcher  storage.Fetcher
	Pool     *pgxpool.Pool
	Cache    *cache.PGCache

	registry *imaging.Registry
}

// Build creates the face detector, the document extractor, the orchestrator
// and, when DATABASE_URL is set and reachable, the report repository and
// detection cache. Only a detector that fails its warmup aborts the build.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	detector, err := face.NewFaceDetector(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Detector: detector,
		registry: imaging.NewRegistry(cfg.TempDir, logger),
	}

	// A nil *S3Fetcher must not end up inside the interface.
	if fetcher, err := storage.NewS3Fetcher(ctx, cfg.AWSRegion, logger); err != nil {
		logger.WarnContext(ctx, "remote documents disabled", "error", err)
	} else {
		p.Fetcher = fetcher
	}

	var reports service.ReportRepositoryInterface
	if cfg.PersistenceEnabled() {
		// Persistence is optional; an unreachable database only disables it.
		if pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL)); err != nil {
			logger.WarnContext(ctx, "database unavailable, running without persistence", "error", err)
		} else {
			p.Pool = pool
			reports = repository.NewReportRepository(pool)
			logger.InfoContext(ctx, "persistence enabled")

			if cfg.DetectionCacheEnabled() {
				p.Cache = cache.NewPGCache(pool)
				detector = cache.NewDetector(detector, p.Cache, cfg.DetectionCacheTTL, logger)
				p.Detector = detector
				logger.InfoContext(ctx, "detection cache enabled", "ttl", cfg.DetectionCacheTTL)
			}
		}
	}

	extractor := document.NewExtractor(p.registry, document.Config{
		PDFToPPMPath: cfg.PDFToPPMPath,
		PDFDPI:       cfg.PDFDPI,
	}, logger)

	auditLogger := audit.NewSlogLogger(logger)
	orchestrator := engine.NewOrchestrator(detector, extractor, p.registry, cfg.EngineConfig(), auditLogger, logger)
	p.Service = service.NewVerificationService(orchestrator, reports, auditLogger, logger)

	return p, nil
}

// Close releases the database pool and any temporary files left behind.
func (p *Pipeline) Close() error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	return p.registry.Close()
}
