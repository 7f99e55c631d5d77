package domain

import "fmt"

// Document classes used by folder ingestion. Manifest ingestion keeps the
// class names declared in the manifest.
const (
	DocClassPrimary     = "primary"
	DocClassCompareWith = "compare_with"
)

// Document is a single file submitted for an applicant.
type Document struct {
	FilePath         string `json:"file_path"`
	DocClass         string `json:"document_class"`
	OriginalFilename string `json:"original_filename,omitempty"`
	RemoteURL        string `json:"remote_url,omitempty"`
}

// DisplayName returns the original filename when known, otherwise the path.
func (d Document) DisplayName() string {
	if d.OriginalFilename != "" {
		return d.OriginalFilename
	}
	return d.FilePath
}

// Applicant groups the documents of one person in a verification run.
type Applicant struct {
	Role           string     `json:"role"` // e.g. "Applicant", "CoApplicant1"
	PrimaryDocs    []Document `json:"primary_docs"`
	ComparisonDocs []Document `json:"comparison_docs"`
}

func (a Applicant) String() string {
	return fmt.Sprintf("Applicant(role=%s, primary=%d, comparison=%d)", a.Role, len(a.PrimaryDocs), len(a.ComparisonDocs))
}
