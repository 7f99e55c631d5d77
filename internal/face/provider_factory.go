package face

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/config"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider/rekognition"
)

// ProviderType defines supported face detector types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace HTTP service (embeddings and detection)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the deterministic in-process detector
	ProviderTypeMock ProviderType = "mock"
	// ProviderTypeRekognition is AWS Rekognition, usable only as ROTATION_DETECTOR
	ProviderTypeRekognition ProviderType = "rekognition"
)

// NewFaceDetector creates the detector described by cfg and warms it up.
// Any failure is reported as domain.ErrProviderInitialization.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - ROTATION_DETECTOR: "" or "rekognition"; routes the rotation scan
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR, DEEPFACE_TIMEOUT, DEEPFACE_RETRY_COUNT
//   - AWS_REGION: region for Rekognition (credentials via the AWS SDK chain)
func NewFaceDetector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (provider.FaceDetector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	detector, err := newEmbeddingDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderInitialization, err)
	}

	switch ProviderType(cfg.RotationDetector) {
	case "":
	case ProviderTypeRekognition:
		rekog, err := rekognition.NewProvider(ctx, rekognition.Config{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("%w: create rekognition provider: %v", domain.ErrProviderInitialization, err)
		}
		detector = provider.NewRouted(rekog, detector)
	default:
		return nil, fmt.Errorf("%w: unknown rotation detector: %s (supported: %s)",
			domain.ErrProviderInitialization, cfg.RotationDetector, ProviderTypeRekognition)
	}

	if w, ok := detector.(provider.Warmer); ok {
		if err := w.Warmup(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderInitialization, err)
		}
	}

	logger.InfoContext(ctx, "face detector ready", "provider", provider.Name(detector))
	return detector, nil
}

func newEmbeddingDetector(cfg *config.Config) (provider.FaceDetector, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil
	case ProviderTypeMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()

	// Unset fields keep the defaults
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceTimeout > 0 {
		deepfaceConfig.Timeout = cfg.DeepFaceTimeout
	}
	if cfg.DeepFaceRetryCount > 0 {
		deepfaceConfig.RetryCount = cfg.DeepFaceRetryCount
	}

	return deepface.NewProvider(deepfaceConfig)
}
