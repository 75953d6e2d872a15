package assets

import (
	"fmt"

	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
)

// Unauthorized is the reserved result error that tells callers to force a logout.
const Unauthorized = "Unauthorized"

// Result carries one resource or an error message; operations never return Go errors
// across this boundary. Err keeps the cause for status mapping and is not serialised.
type Result struct {
	Error string    `json:"error,omitempty"`
	Asset *Resource `json:"asset,omitempty"`
	Err   error     `json:"-"`
}

type ListResult struct {
	Error  string     `json:"error,omitempty"`
	Assets []Resource `json:"assets,omitempty"`
	Err    error      `json:"-"`
}

// MyAssetsResult groups the user's resources by plural type tag.
type MyAssetsResult struct {
	Error  string                `json:"error,omitempty"`
	Assets map[string][]Resource `json:"assets,omitempty"`
	Err    error                 `json:"-"`
}

type ContactResult struct {
	Error   string   `json:"error,omitempty"`
	Contact *Contact `json:"contact,omitempty"`
	Err     error    `json:"-"`
}

// SaveResult reports the identifier the backend assigned or kept.
type SaveResult struct {
	Error      string     `json:"error,omitempty"`
	Identifier Identifier `json:"identifier,omitempty"`
	Err        error      `json:"-"`
}

type AuthTestResult struct {
	Error string `json:"error,omitempty"`
	Name  string `json:"name,omitempty"`
	Err   error  `json:"-"`
}

// IsUnauthorized reports whether a result error string is the forced-logout sentinel.
func IsUnauthorized(msg string) bool {
	return msg == Unauthorized
}

// errorMessage turns err into the message placed in a result.
func errorMessage(action string, err error) string {
	if apperrors.Is(err, apperrors.ErrUnauthorized) || apperrors.Is(err, apperrors.ErrRefreshAccessToken) {
		return Unauthorized
	}
	var verr *ValidationError
	if apperrors.As(err, &verr) {
		return verr.Error()
	}
	if apperrors.Is(err, apperrors.ErrUnknownType) || apperrors.Is(err, apperrors.ErrBadRequest) {
		return err.Error()
	}
	var apiErr *catalogue.APIError
	if apperrors.As(err, &apiErr) {
		return fmt.Sprintf("Failed to %s: %s", action, apiErr.Status)
	}
	return fmt.Sprintf("Failed to %s", action)
}
