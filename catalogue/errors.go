package catalogue

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
)

// APIError is returned for any non-2xx response from the catalogue API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %s %s %s", e.Status, e.Method, e.URL)
}

// Unwrap lets callers match ErrBackend for every status, plus ErrUnauthorized and
// ErrNotFound for the statuses that mean those things. A 403 is a refused action on
// a live session and stays a plain backend error.
func (e *APIError) Unwrap() []error {
	errs := []error{apperrors.ErrBackend}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = append(errs, apperrors.ErrUnauthorized)
	case http.StatusNotFound:
		errs = append(errs, apperrors.ErrNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		errs = append(errs, apperrors.ErrValidation)
	}
	return errs
}

// StatusCode extracts the backend status from err, or 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if apperrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
