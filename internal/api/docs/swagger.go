package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ManifestDocument is one document submitted for an applicant
type ManifestDocument struct {
	DocumentClass    string `json:"document_class" example:"AADHAAR"`
	FilePath         string `json:"file_path" example:"s3://kyc-docs/123/aadhaar.pdf"`
	OriginalFilename string `json:"original_filename" example:"aadhaar.pdf"`
}

// ManifestApplicant groups the documents of one person
type ManifestApplicant struct {
	Key       string             `json:"key" example:"co_applicant_1"`
	Documents []ManifestDocument `json:"documents"`
}

// ComparisonRule declares the primary class of a role and the classes compared against it
type ComparisonRule struct {
	Role        string   `json:"role" example:"Applicant"`
	Primary     string   `json:"primary" example:"PAN"`
	CompareWith []string `json:"compare_with" example:"AADHAAR,BANK_STATEMENT"`
}

// ManifestRequest is the body of POST /v1/verifications
type ManifestRequest struct {
	ComparisonMatrix []ComparisonRule    `json:"comparison_matrix"`
	Applicants       []ManifestApplicant `json:"applicants"`
}

// ComparisonRecord is the verdict for one comparison document
type ComparisonRecord struct {
	DocumentClass string  `json:"document_class" example:"AADHAAR"`
	Filename      string  `json:"filename" example:"aadhaar.pdf"`
	FilePath      string  `json:"file_path" example:"dataset/applicant/compare_with/aadhaar.pdf"`
	FacesFound    int     `json:"faces_found" example:"1"`
	IsMatch       bool    `json:"is_match" example:"true"`
	Similarity    float64 `json:"similarity" example:"0.7312"`
	Distance      float64 `json:"distance" example:"0.2688"`
	Threshold     float64 `json:"threshold" example:"0.6"`
	RotationAngle int     `json:"rotation_angle" example:"90"`
	Details       string  `json:"details" example:"Comparison complete"`
}

// ApplicantReport aggregates the comparisons of one applicant
type ApplicantReport struct {
	Role                 string             `json:"role" example:"Applicant"`
	PrimaryFacesDetected int                `json:"primary_faces_detected" example:"1"`
	Comparisons          []ComparisonRecord `json:"comparisons"`
}

// VerificationResponse is the grouped result of a run
type VerificationResponse struct {
	RunID        string            `json:"run_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status       string            `json:"status" example:"success"`
	Applicant    *ApplicantReport  `json:"applicant"`
	CoApplicants []ApplicantReport `json:"co_applicants"`
}

// ComparisonsResponse lists the stored comparisons of a run
type ComparisonsResponse struct {
	RunID       string             `json:"run_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Comparisons []ComparisonRecord `json:"comparisons"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Version string            `json:"version,omitempty" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_MANIFEST"`
	Message string `json:"message" example:"Manifest could not be parsed"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "idmatch Face Verification API",
		Version:     "v1.0.0",
		Description: "Verifies that the faces on an applicant's identity documents belong to the same person",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /health - Liveness
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness check"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is running"),
			}),
		),

		// GET /ready - Readiness
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness check"),
			endpoint.WithDescription("Checks the face provider and, when persistence is enabled, the database"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Dependencies are reachable"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready"}, "503", "A dependency is unavailable"),
			}),
		),

		// POST /v1/verifications - Run a verification
		endpoint.New(
			endpoint.POST,
			"/v1/verifications",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Verify the faces of a manifest"),
			endpoint.WithDescription("Downloads the manifest documents, compares every comparison document against the primary documents of its applicant and returns the grouped result. Runs are served one at a time."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(ManifestRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationResponse{}, "200", "Run completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_MANIFEST", Message: "Manifest could not be parsed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_APPLICANTS", Message: "Manifest does not contain any applicant mapped to the comparison matrix"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RUN_IN_PROGRESS", Message: "Another verification run is in progress, try again later"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /v1/verifications/{id}/comparisons - Stored comparisons
		endpoint.New(
			endpoint.GET,
			"/v1/verifications/{id}/comparisons",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("List the comparisons of a stored run"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Run ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ComparisonsResponse{}, "200", "Comparisons found"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Resource not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "PERSISTENCE_DISABLED", Message: "Result persistence is not configured"}, "501", "Not Implemented"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
