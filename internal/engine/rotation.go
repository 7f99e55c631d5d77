package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// RotationSearcher finds the orientation in which a face is best detected.
type RotationSearcher struct {
	detector provider.FaceDetector
	registry *imaging.Registry
	angles   []int
	logger   *slog.Logger
}

// NewRotationSearcher creates a searcher over angles. Nil angles use DefaultAngles.
func NewRotationSearcher(detector provider.FaceDetector, registry *imaging.Registry, angles []int, logger *slog.Logger) *RotationSearcher {
	if len(angles) == 0 {
		angles = DefaultAngles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RotationSearcher{
		detector: detector,
		registry: registry,
		angles:   angles,
		logger:   logger.With("component", "rotation"),
	}
}

// FindBestRotation tries every angle in order and keeps the best one.
// The caller must Release the result once it no longer needs BestImagePath.
func (s *RotationSearcher) FindBestRotation(ctx context.Context, imagePath string) domain.RotationSearchResult {
	result := domain.RotationSearchResult{
		BestImagePath: imagePath,
		Trials:        []domain.RotationTrial{},
	}

	original, err := os.ReadFile(imagePath)
	if err != nil {
		s.logger.WarnContext(ctx, "could not load image", "path", imagePath, "error", err)
		return result
	}
	img, _, err := imaging.Decode(original)
	if err != nil {
		s.logger.WarnContext(ctx, "could not load image", "path", imagePath, "error", err)
		return result
	}

	arena, arenaErr := s.registry.NewArena()
	if arenaErr != nil {
		s.logger.WarnContext(ctx, "rotation arena unavailable", "error", arenaErr)
	}

	for _, angle := range s.angles {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "rotation search interrupted", "path", imagePath, "error", err)
			break
		}

		var trial domain.RotationTrial
		var path string
		var err error
		if angle%360 != 0 && arena == nil {
			trial, err = domain.RotationTrial{Angle: angle}, fmt.Errorf("rotation arena: %w", arenaErr)
		} else {
			trial, path, err = s.tryAngle(ctx, img, original, imagePath, angle, arena)
		}
		if err != nil {
			trial.Error = err.Error()
			s.logger.DebugContext(ctx, "rotation trial failed", "path", imagePath, "angle", angle, "error", err)
		}
		result.Trials = append(result.Trials, trial)

		if isBetter(trial, result) {
			if arena != nil && result.BestAngle != angle {
				arena.Discard(result.BestAngle)
			}
			result.BestAngle = angle
			result.BestConfidence = trial.Confidence
			result.NumFaces = trial.NumFaces
			result.BestImagePath = path
		} else if arena != nil && angle != 0 {
			arena.Discard(angle)
		}
	}

	s.logger.InfoContext(ctx, "rotation analysis",
		"path", imagePath,
		"best_angle", result.BestAngle,
		"confidence", result.BestConfidence,
		"faces", result.NumFaces,
	)

	if arena == nil {
		return result
	}
	if result.NumFaces == 0 || result.BestAngle == 0 {
		arena.Close()
		return result
	}
	arena.ReleaseExcept(result.BestAngle)
	return domain.NewRotationSearchResult(result, arena.Close)
}

// isBetter applies the selection priority: any face beats none, then higher
// confidence, then a single face over several at equal confidence.
func isBetter(trial domain.RotationTrial, best domain.RotationSearchResult) bool {
	if trial.NumFaces == 0 {
		return false
	}
	switch {
	case best.NumFaces == 0:
		return true
	case trial.Confidence > best.BestConfidence:
		return true
	case trial.Confidence == best.BestConfidence && trial.NumFaces == 1 && best.NumFaces > 1:
		return true
	}
	return false
}

// tryAngle evaluates a single orientation. On error the returned trial has
// zero faces.
func (s *RotationSearcher) tryAngle(ctx context.Context, img image.Image, original []byte, imagePath string, angle int, arena *imaging.Arena) (domain.RotationTrial, string, error) {
	trial := domain.RotationTrial{Angle: angle}

	data, path := original, imagePath
	if angle%360 != 0 {
		var err error
		path, data, err = arena.Write(angle, imaging.Rotate(img, angle))
		if err != nil {
			return trial, "", fmt.Errorf("write rotation %d: %w", angle, err)
		}
	}

	detections, err := s.detector.Detect(ctx, data, provider.DetectOptions{Align: false, Embeddings: false})
	if err != nil {
		if errors.Is(err, provider.ErrNoFaceDetected) {
			return trial, path, nil
		}
		return trial, path, err
	}

	trial.NumFaces = len(detections)
	for _, d := range detections {
		if d.Confidence > trial.Confidence {
			trial.Confidence = d.Confidence
		}
	}
	return trial, path, nil
}
