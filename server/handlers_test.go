package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"refresh failed", fmt.Errorf("wrapped: %w", apperrors.ErrRefreshAccessToken), http.StatusUnauthorized},
		{"validation", apperrors.ErrValidation, http.StatusBadRequest},
		{"unknown type", apperrors.ErrUnknownType, http.StatusBadRequest},
		{"backend 404", &catalogue.APIError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"backend 409", &catalogue.APIError{StatusCode: http.StatusConflict}, http.StatusConflict},
		{"backend 503", &catalogue.APIError{StatusCode: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{"backend 403", &catalogue.APIError{StatusCode: http.StatusForbidden}, http.StatusForbidden},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestSafeReturnPath(t *testing.T) {
	s := &Server{basePath: "/editor"}

	require.Equal(t, "/editor/my-assets", s.safeReturnPath(""))
	require.Equal(t, "/editor/my-assets", s.safeReturnPath("https://evil.example/"))
	require.Equal(t, "/editor/my-assets", s.safeReturnPath("//evil.example/"))
	require.Equal(t, "/editor/my-assets", s.safeReturnPath(`/\evil.example/`))
	require.Equal(t, "/editor/my-assets/events", s.safeReturnPath("/editor/my-assets/events"))
}
