package provider

import (
	"context"
	"fmt"
)

// Routed sends detection-only queries to one provider and embedding queries
// to another. The rotation scan only needs face counts and confidences, so it
// can run against a detector that does not compute embeddings.
type Routed struct {
	Detection FaceDetector
	Embedding FaceDetector
}

// NewRouted creates a Routed provider.
func NewRouted(detection, embedding FaceDetector) *Routed {
	return &Routed{Detection: detection, Embedding: embedding}
}

func (r *Routed) Detect(ctx context.Context, image []byte, opts DetectOptions) ([]Detection, error) {
	if opts.Embeddings {
		return r.Embedding.Detect(ctx, image, opts)
	}
	return r.Detection.Detect(ctx, image, opts)
}

// Warmup warms both underlying providers when they support it.
func (r *Routed) Warmup(ctx context.Context) error {
	for _, d := range []FaceDetector{r.Detection, r.Embedding} {
		w, ok := d.(Warmer)
		if !ok {
			continue
		}
		if err := w.Warmup(ctx); err != nil {
			return fmt.Errorf("warmup %s: %w", Name(d), err)
		}
	}
	return nil
}

func (r *Routed) Name() string {
	return fmt.Sprintf("routed(%s,%s)", Name(r.Detection), Name(r.Embedding))
}

var (
	_ FaceDetector = (*Routed)(nil)
	_ Warmer       = (*Routed)(nil)
)
