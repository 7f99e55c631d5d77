package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Provider implements provider.FaceDetector using AWS Rekognition DetectFaces.
// Rekognition does not expose embeddings, so it is only used for the rotation scan.
type Provider struct {
	client *Client
}

// NewProvider creates a new Rekognition provider
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return "rekognition"
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// Detect calls DetectFaces and converts the ratio bounding boxes to pixels.
func (p *Provider) Detect(ctx context.Context, image []byte, opts provider.DetectOptions) ([]provider.Detection, error) {
	if opts.Embeddings {
		return nil, provider.ErrEmbeddingsUnsupported
	}
	if err := validateImage(image); err != nil {
		return nil, err
	}

	width, height, err := imaging.Dimensions(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	output, err := p.client.rekognition.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", ParseDetectError(err))
	}

	detections := make([]provider.Detection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		bb := detail.BoundingBox
		detections = append(detections, provider.Detection{
			Box: domain.BoundingBox{
				X:      float64(aws.ToFloat32(bb.Left)) * float64(width),
				Y:      float64(aws.ToFloat32(bb.Top)) * float64(height),
				Width:  float64(aws.ToFloat32(bb.Width)) * float64(width),
				Height: float64(aws.ToFloat32(bb.Height)) * float64(height),
			},
			// Rekognition reports confidence on a 0-100 scale
			Confidence: float64(aws.ToFloat32(detail.Confidence)) / 100,
		})
	}

	return detections, nil
}

var _ provider.FaceDetector = (*Provider)(nil)
