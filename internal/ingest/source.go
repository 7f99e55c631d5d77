// Package ingest turns submitted input (a folder tree or a JSON manifest)
// into applicants ready for verification.
package ingest

import (
	"context"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

// Source yields the applicants of a run.
type Source interface {
	Applicants(ctx context.Context) ([]domain.Applicant, error)
}
