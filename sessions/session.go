package sessions

import (
	"context"
	"math"
	"time"
)

// ErrorCode tags a session whose tokens can no longer be used.
type ErrorCode string

const (
	// RefreshAccessTokenError marks a session whose renewal failed; the user must log in again.
	RefreshAccessTokenError ErrorCode = "RefreshAccessTokenError"
)

// Session is the per-user token record. Values are immutable: renewal produces a
// new Session which replaces the stored one only if Version still matches.
type Session struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`

	// Identity from the ID token
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Image  string `json:"image,omitempty"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	// ExpiresAt is the absolute access token expiry in epoch seconds.
	ExpiresAt float64   `json:"expires_at"`
	Error     ErrorCode `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAtFrom computes an absolute expiry from a token endpoint's expires_in.
func ExpiresAtFrom(now time.Time, expiresIn int) float64 {
	return float64(now.UnixNano())/float64(time.Second) + float64(expiresIn)
}

// Expiry returns ExpiresAt as a time.Time.
func (s Session) Expiry() time.Time {
	sec, frac := math.Modf(s.ExpiresAt)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

func (s Session) HasRefreshToken() bool {
	return s.RefreshToken != ""
}

// IsExpired reports whether the access token is past its expiry at now.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.Expiry())
}

// ExpiresWithin reports whether the access token expires within skew of now.
func (s Session) ExpiresWithin(now time.Time, skew time.Duration) bool {
	return !now.Before(s.Expiry().Add(-skew))
}

// WithTokens returns a copy carrying a renewed token set. Any previous error is cleared.
func (s Session) WithTokens(accessToken, refreshToken string, expiresAt float64) Session {
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.ExpiresAt = expiresAt
	s.Error = ""
	return s
}

// WithError returns a copy tagged with code.
func (s Session) WithError(code ErrorCode) Session {
	s.Error = code
	return s
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// AccessTokenFromContext returns the bearer token of the request's session, if any.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	s, ok := FromContext(ctx)
	if !ok || s.AccessToken == "" || s.Error != "" {
		return "", false
	}
	return s.AccessToken, true
}
