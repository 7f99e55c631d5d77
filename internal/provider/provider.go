package provider

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

var (
	// ErrNoFaceDetected is returned when the provider reports that the image has no face.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrEmbeddingsUnsupported is returned by detection-only providers asked for embeddings.
	ErrEmbeddingsUnsupported = errors.New("provider does not compute embeddings")

	// ErrInvalidImage is returned when the image bytes cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// DetectOptions controls a single detection query.
type DetectOptions struct {
	// Align asks the provider to align faces before embedding.
	Align bool
	// Embeddings asks the provider to compute one embedding per face.
	Embeddings bool
}

// Detection is a raw face returned by a provider.
// Confidence is normalized to [0,1]; 0 means the provider did not report one.
type Detection struct {
	Box        domain.BoundingBox `json:"box"`
	Confidence float64            `json:"confidence"`
	Embedding  []float64          `json:"embedding,omitempty"`
}

// FaceDetector define a interface dos provedores de detecção facial
type FaceDetector interface {
	// Detect returns every face found in the encoded image.
	// An empty slice and ErrNoFaceDetected are both valid "no face" answers.
	Detect(ctx context.Context, image []byte, opts DetectOptions) ([]Detection, error)
}

// Warmer is implemented by providers that need a readiness check before use.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Name returns a short provider name for logs, or "unknown".
func Name(d FaceDetector) string {
	if n, ok := d.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
