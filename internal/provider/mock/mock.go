package mock

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

const (
	embeddingDimension = 512
	defaultConfidence  = 0.99
)

// Provider implementa provider.FaceDetector para testes e desenvolvimento.
// Every decodable image has exactly one centered face covering a quarter of it.
type Provider struct {
	confidence float64
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{confidence: defaultConfidence}
}

func (p *Provider) Name() string {
	return "mock"
}

// Detect simula detecção de faces
func (p *Provider) Detect(ctx context.Context, image []byte, opts provider.DetectOptions) ([]provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h, err := imaging.Dimensions(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidImage, err)
	}

	d := provider.Detection{
		Box: domain.BoundingBox{
			X:      float64(w) / 4,
			Y:      float64(h) / 4,
			Width:  float64(w) / 2,
			Height: float64(h) / 2,
		},
		Confidence: p.confidence,
	}
	if opts.Embeddings {
		d.Embedding = generateEmbedding(image)
	}

	return []provider.Detection{d}, nil
}

// Warmup is a no-op.
func (p *Provider) Warmup(ctx context.Context) error {
	return nil
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.FaceDetector = (*Provider)(nil)
	_ provider.Warmer       = (*Provider)(nil)
)
