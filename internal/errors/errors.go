package errors

import (
	"errors"
	"fmt"
)

// Common error types for the catalogue editor
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRefreshAccessToken = errors.New("refresh access token failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrVersionConflict = errors.New("session version conflict")

	// Backend errors
	ErrBackend  = errors.New("backend error")
	ErrNotFound = errors.New("not found")

	// Input errors
	ErrValidation  = errors.New("validation failed")
	ErrBadRequest  = errors.New("bad request")
	ErrUnknownType = errors.New("unknown type")

	// General errors
	ErrNotConfigured = errors.New("not configured")
	ErrInternal      = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
