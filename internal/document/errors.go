package document

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

func extractionError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
}
