package engine

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// QualityFilter rejects detections unlikely to be a usable document face.
type QualityFilter struct {
	MinConfidence float64
	MinSize       int
	MaxAreaRatio  float64
}

// IsAcceptable checks d against an image of the given size. When rejected the
// reason describes the first failing check.
func (f QualityFilter) IsAcceptable(d provider.Detection, imageWidth, imageHeight int) (bool, string) {
	// Zero confidence means the provider did not report one.
	if d.Confidence > 0 && d.Confidence < f.MinConfidence {
		return false, fmt.Sprintf("low confidence (%.3f < %v)", d.Confidence, f.MinConfidence)
	}

	minSize := float64(f.MinSize)
	if d.Box.Width < minSize || d.Box.Height < minSize {
		return false, fmt.Sprintf("face too small (%vx%v < %d)", d.Box.Width, d.Box.Height, f.MinSize)
	}

	imageArea := float64(imageWidth) * float64(imageHeight)
	var ratio float64
	if imageArea > 0 {
		ratio = d.Box.Area() / imageArea
	}
	if ratio > f.MaxAreaRatio {
		return false, fmt.Sprintf("face area too large (%.2f > %v)", ratio, f.MaxAreaRatio)
	}

	return true, ""
}
