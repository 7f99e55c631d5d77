package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`              // data URI with base64 payload
	Model            string `json:"model_name"`       // "ArcFace", "Facenet512", etc
	Detector         string `json:"detector_backend"` // "retinaface", "mtcnn", etc
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	Confidence     *float64   `json:"confidence,omitempty"`
	FaceConfidence *float64   `json:"face_confidence,omitempty"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ExtractFacesRequest for POST /extract_faces
type ExtractFacesRequest struct {
	Img              string `json:"img"`
	Detector         string `json:"detector_backend"`
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// ExtractFacesResponse from POST /extract_faces
type ExtractFacesResponse struct {
	Results []ExtractFacesResult `json:"results"`
}

type ExtractFacesResult struct {
	FacialArea     FacialArea `json:"facial_area"`
	Confidence     *float64   `json:"confidence,omitempty"`
	FaceConfidence *float64   `json:"face_confidence,omitempty"`
}

// normalizeConfidence picks "confidence" first, then "face_confidence".
// Zero means the service did not report either.
func normalizeConfidence(confidence, faceConfidence *float64) float64 {
	if confidence != nil {
		return *confidence
	}
	if faceConfidence != nil {
		return *faceConfidence
	}
	return 0
}
