package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// Provider implements provider.FaceDetector using DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

func (p *Provider) Name() string {
	return "deepface"
}

// Detect uses /represent when embeddings are requested and /extract_faces otherwise.
func (p *Provider) Detect(ctx context.Context, image []byte, opts provider.DetectOptions) ([]provider.Detection, error) {
	img := encodeImage(image)

	if opts.Embeddings {
		resp, err := p.client.Represent(ctx, img, opts.Align)
		if err != nil {
			return nil, mapError("represent", err)
		}
		detections := make([]provider.Detection, 0, len(resp.Results))
		for _, r := range resp.Results {
			detections = append(detections, provider.Detection{
				Box:        toBox(r.FacialArea),
				Confidence: normalizeConfidence(r.Confidence, r.FaceConfidence),
				Embedding:  r.Embedding,
			})
		}
		return detections, nil
	}

	resp, err := p.client.ExtractFaces(ctx, img, opts.Align)
	if err != nil {
		return nil, mapError("extract faces", err)
	}
	detections := make([]provider.Detection, 0, len(resp.Results))
	for _, r := range resp.Results {
		detections = append(detections, provider.Detection{
			Box:        toBox(r.FacialArea),
			Confidence: normalizeConfidence(r.Confidence, r.FaceConfidence),
		})
	}
	return detections, nil
}

// Warmup checks the service is reachable before the first run.
func (p *Provider) Warmup(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func mapError(op string, err error) error {
	if isNoFaceError(err) {
		return fmt.Errorf("%s: %w", op, provider.ErrNoFaceDetected)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// encodeImage builds the data URI DeepFace accepts in the img field.
func encodeImage(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func toBox(a FacialArea) domain.BoundingBox {
	return domain.BoundingBox{
		X:      float64(a.X),
		Y:      float64(a.Y),
		Width:  float64(a.W),
		Height: float64(a.H),
	}
}

var (
	_ provider.FaceDetector = (*Provider)(nil)
	_ provider.Warmer       = (*Provider)(nil)
)
