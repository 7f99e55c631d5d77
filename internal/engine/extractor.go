package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// Extractor produces at most one face observation per image.
type Extractor struct {
	detector provider.FaceDetector
	rotation *RotationSearcher
	filter   QualityFilter
	config   Config
	logger   *slog.Logger
}

// NewExtractor wires an extractor. The registry owns rotation artifacts and
// is only used when rotation is enabled.
func NewExtractor(detector provider.FaceDetector, registry *imaging.Registry, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		detector: detector,
		filter:   cfg.QualityFilter(),
		config:   cfg,
		logger:   logger.With("component", "extractor"),
	}
	if cfg.EnableRotation {
		e.rotation = NewRotationSearcher(detector, registry, cfg.Angles, logger)
	}
	return e
}

// Extract returns the best quality face found in the image, or nothing.
// Provider failures are logged and yield an empty result.
func (e *Extractor) Extract(ctx context.Context, imagePath string) []domain.FaceObservation {
	bestPath := imagePath
	angle := 0

	if e.rotation != nil {
		rotation := e.rotation.FindBestRotation(ctx, imagePath)
		defer rotation.Release()

		if rotation.NumFaces == 0 {
			e.logger.DebugContext(ctx, "no faces detected at any rotation angle", "path", imagePath)
			return nil
		}
		bestPath = rotation.BestImagePath
		angle = rotation.BestAngle
	}

	data, err := os.ReadFile(bestPath)
	if err != nil {
		e.logger.WarnContext(ctx, "could not load image", "path", bestPath, "error", err)
		return nil
	}
	width, height, err := imaging.Dimensions(data)
	if err != nil {
		e.logger.WarnContext(ctx, "could not load image", "path", bestPath, "error", err)
		return nil
	}

	detections, err := e.detector.Detect(ctx, data, provider.DetectOptions{Align: true, Embeddings: true})
	if err != nil {
		if errors.Is(err, provider.ErrNoFaceDetected) {
			e.logger.DebugContext(ctx, "no faces detected", "path", imagePath)
			return nil
		}
		e.logger.WarnContext(ctx, "face extraction failed", "path", imagePath, "error", err)
		return nil
	}

	var observations []domain.FaceObservation
	for _, d := range detections {
		if ok, reason := e.filter.IsAcceptable(d, width, height); !ok {
			e.logger.DebugContext(ctx, "face rejected", "path", imagePath, "reason", reason)
			continue
		}

		quality := d.Confidence
		if quality == 0 {
			quality = e.config.DefaultQualityScore
		}

		observations = append(observations, domain.FaceObservation{
			Embedding:     d.Embedding,
			Box:           d.Box,
			Confidence:    quality,
			QualityScore:  quality,
			SourcePath:    imagePath,
			RotationAngle: angle,
		})
	}

	if len(observations) > 1 {
		e.logger.DebugContext(ctx, "multiple faces detected, keeping highest quality", "path", imagePath, "count", len(observations))
		best := 0
		for i := 1; i < len(observations); i++ {
			if observations[i].QualityScore > observations[best].QualityScore {
				best = i
			}
		}
		observations = observations[best : best+1]
	}

	return observations
}
