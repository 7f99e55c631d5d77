package domain

// BoundingBox is a face region in pixels of the image it was detected on.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Area returns Width*Height.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// RotationTrial is one evaluated orientation during a rotation search.
type RotationTrial struct {
	Angle      int     `json:"angle"`
	Confidence float64 `json:"confidence"`
	NumFaces   int     `json:"num_faces"`
	Error      string  `json:"error,omitempty"`
}

// RotationSearchResult describes the best orientation found for an image.
// When no angle produced a face, BestAngle is 0, NumFaces is 0 and
// BestImagePath is the original image.
type RotationSearchResult struct {
	BestAngle      int             `json:"best_angle"`
	BestConfidence float64         `json:"best_confidence"`
	BestImagePath  string          `json:"best_image_path"`
	NumFaces       int             `json:"num_faces"`
	Trials         []RotationTrial `json:"all_results"`

	release func()
}

// NewRotationSearchResult attaches the function that frees the best image
// artifact once the caller is done with it.
func NewRotationSearchResult(r RotationSearchResult, release func()) RotationSearchResult {
	r.release = release
	return r
}

// Release frees the best rotated image, if one was materialized. Safe to call
// more than once.
func (r *RotationSearchResult) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// FaceObservation is the face retained for one source image.
type FaceObservation struct {
	Embedding     []float64   `json:"-"`
	Box           BoundingBox `json:"box"`
	Confidence    float64     `json:"confidence"`
	QualityScore  float64     `json:"quality_score"`
	SourcePath    string      `json:"source_path"`
	RotationAngle int         `json:"rotation_angle"`
}

// MatchResult is the outcome of comparing two embeddings with cosine
// distance. Similarity is always 1 - Distance.
type MatchResult struct {
	Verified   bool    `json:"verified"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
}
