package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
)

// noFaceMarker is the message DeepFace raises when enforce_detection finds nothing.
const noFaceMarker = "Face could not be detected"

// statusError is a non-2xx response from the DeepFace service.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500
	}
	return false
}

// isNoFaceError reports whether DeepFace rejected the image because no face was found.
func isNoFaceError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return strings.Contains(se.Body, noFaceMarker)
	}
	return false
}
