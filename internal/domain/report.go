package domain

import "github.com/google/uuid"

// Comparison statuses reported in ComparisonRecord.Details.
const (
	DetailsNoHumanFaces      = "No human faces detected"
	DetailsNoPrimaryFace     = "No primary face available for comparison"
	DetailsComparisonDone    = "Comparison complete"
	DetailsExtractionErrorFn = "Error processing document: %v"
)

// ComparisonRecord is the verdict for one comparison document.
type ComparisonRecord struct {
	DocumentClass string  `json:"document_class"`
	Filename      string  `json:"filename"`
	FilePath      string  `json:"file_path"`
	FacesFound    int     `json:"faces_found"`
	IsMatch       bool    `json:"is_match"`
	Similarity    float64 `json:"similarity"`
	Distance      float64 `json:"distance"`
	Threshold     float64 `json:"threshold"`
	RotationAngle int     `json:"rotation_angle"`
	Details       string  `json:"details"`
}

// ApplicantReport aggregates the comparison records of one applicant.
type ApplicantReport struct {
	Role                 string             `json:"role"`
	PrimaryFacesDetected int                `json:"primary_faces_detected"`
	Comparisons          []ComparisonRecord `json:"comparisons"`

	// PrimaryFaces are kept for persistence and never serialized.
	PrimaryFaces []FaceObservation `json:"-"`
}

// VerificationOutput is the grouped result of a run.
type VerificationOutput struct {
	RunID        uuid.UUID         `json:"run_id"`
	Status       string            `json:"status"`
	Applicant    *ApplicantReport  `json:"applicant"`
	CoApplicants []ApplicantReport `json:"co_applicants"`
}
