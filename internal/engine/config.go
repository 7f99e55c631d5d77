// Package engine implements the face verification pipeline: rotation search,
// quality filtering, embedding extraction, pairwise matching and the
// per-applicant orchestration that ties them together.
package engine

// DefaultAngles are tried in order during a rotation search.
var DefaultAngles = []int{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330}

// Config holds the tunable thresholds of the pipeline.
type Config struct {
	MinFaceConfidence float64
	MinFaceSize       int
	MaxFaceAreaRatio  float64
	MatchThreshold    float64
	EnableRotation    bool
	Angles            []int

	// DefaultQualityScore is used when the provider reports no confidence.
	DefaultQualityScore float64
}

// DefaultConfig returns the thresholds tuned for identity documents.
func DefaultConfig() Config {
	return Config{
		MinFaceConfidence:   0.5,
		MinFaceSize:         30,
		MaxFaceAreaRatio:    0.85,
		MatchThreshold:      0.60,
		EnableRotation:      true,
		Angles:              DefaultAngles,
		DefaultQualityScore: 0.9,
	}
}

// QualityFilter builds the filter configured by c.
func (c Config) QualityFilter() QualityFilter {
	return QualityFilter{
		MinConfidence: c.MinFaceConfidence,
		MinSize:       c.MinFaceSize,
		MaxAreaRatio:  c.MaxFaceAreaRatio,
	}
}
