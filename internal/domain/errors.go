package domain

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Only ErrInputNotFound and ErrProviderInitialization
// abort a run; the others are absorbed where they occur.
var (
	ErrInputNotFound          = errors.New("input not found")
	ErrProviderInitialization = errors.New("face provider initialization failed")
	ErrExtraction             = errors.New("document extraction failed")
	ErrInvalidManifest        = errors.New("invalid manifest")
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrManifestInvalid = &AppError{
		Code:       "INVALID_MANIFEST",
		Message:    "Manifest could not be parsed",
		StatusCode: 422,
	}

	ErrNoApplicants = &AppError{
		Code:       "NO_APPLICANTS",
		Message:    "Manifest does not contain any applicant mapped to the comparison matrix",
		StatusCode: 422,
	}

	ErrPersistenceDisabled = &AppError{
		Code:       "PERSISTENCE_DISABLED",
		Message:    "Result persistence is not configured",
		StatusCode: 501,
	}

	ErrRunInProgress = &AppError{
		Code:       "RUN_IN_PROGRESS",
		Message:    "Another verification run is in progress, try again later",
		StatusCode: 429,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "Face provider is not ready",
		StatusCode: 503,
	}
)
