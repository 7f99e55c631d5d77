package engine

import (
	"math"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

// Matcher compares embeddings with cosine distance.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher that verifies pairs closer than threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured distance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match is the winning primary/comparison pair of a BestMatch.
type Match struct {
	Primary    domain.FaceObservation
	Comparison domain.FaceObservation
	Result     domain.MatchResult
}

// CosineSimilarity returns a·b/(|a||b|) clamped to [-1,1]. It reports false
// when the similarity is undefined (empty or mismatched vectors, zero norm,
// overflow).
func CosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0, false
	}

	similarity := dot / denominator
	if math.IsNaN(similarity) || math.IsInf(similarity, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, similarity)), true
}

// CompareEmbedding compares two embeddings. Degenerate input yields an
// unverified result with distance 1 and similarity 0.
func (m *Matcher) CompareEmbedding(a, b []float64) domain.MatchResult {
	similarity, ok := CosineSimilarity(a, b)
	if !ok {
		return domain.MatchResult{Verified: false, Distance: 1, Similarity: 0, Threshold: m.threshold}
	}

	distance := 1 - similarity
	return domain.MatchResult{
		Verified:   distance < m.threshold,
		Distance:   distance,
		Similarity: similarity,
		Threshold:  m.threshold,
	}
}

// BestMatch compares every primary against every comparison observation and
// returns the most similar pair. Ties keep the first pair in primary-major
// order. Either list empty returns nil.
func (m *Matcher) BestMatch(primary, comparison []domain.FaceObservation) *Match {
	if len(primary) == 0 || len(comparison) == 0 {
		return nil
	}

	var best *Match
	for _, p := range primary {
		for _, c := range comparison {
			res := m.CompareEmbedding(p.Embedding, c.Embedding)
			if best == nil || res.Similarity > best.Result.Similarity {
				best = &Match{Primary: p, Comparison: c, Result: res}
			}
		}
	}
	return best
}
