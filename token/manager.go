package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/internal/metrics"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/jrsteele09/go-catalogue-editor/token/refresh"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	// DefaultExpirySkew is how long before expiry an access token is renewed.
	DefaultExpirySkew = 60 * time.Second
	// DefaultRenewalTimeout bounds one renewal independently of the requests waiting on it.
	DefaultRenewalTimeout = 15 * time.Second
)

// Identity is the user identity taken from the verified ID token at login.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Grant is the token set issued by the provider on login.
type Grant struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    int
}

// Manager decides per request whether a session's access token can be reused,
// must be renewed, or is unusable. Renewals for one session are collapsed by
// singleflight and written back with a version compare-and-swap, so parallel
// requests never spend the same refresh token twice.
type Manager struct {
	sessions sessions.Repo
	renewer  refresh.Renewer
	skew     time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics
	renewals singleflight.Group
}

type Option func(*Manager)

func WithSkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

func WithRenewalTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func NewManager(repo sessions.Repo, renewer refresh.Renewer, opts ...Option) *Manager {
	m := &Manager{
		sessions: repo,
		renewer:  renewer,
		skew:     DefaultExpirySkew,
		timeout:  DefaultRenewalTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Establish records the tokens issued on a successful login and returns the new session.
func (m *Manager) Establish(ctx context.Context, identity Identity, grant Grant) (sessions.Session, error) {
	if grant.AccessToken == "" {
		return sessions.Session{}, fmt.Errorf("[token Establish] %w: no access token", apperrors.ErrInvalidToken)
	}
	now := NowTimeFunc()
	s := sessions.Session{
		ID:           uuid.New().String(),
		UserID:       identity.Subject,
		Email:        identity.Email,
		Name:         identity.Name,
		Image:        identity.Picture,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		IDToken:      grant.IDToken,
		ExpiresAt:    sessions.ExpiresAtFrom(now, grant.ExpiresIn),
		CreatedAt:    now,
	}
	created, err := m.sessions.Create(ctx, s)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("[token Establish] %w", err)
	}
	log.Debug().Str("session", created.ID).Str("sub", identity.Subject).Msg("session established")
	return created, nil
}

// GetValidToken returns a usable access token for the session, renewing it first when needed.
func (m *Manager) GetValidToken(ctx context.Context, sessionID string) (string, error) {
	s, err := m.ValidSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// ValidSession returns the session with a usable access token.
//
// Errors wrap ErrUnauthorized when the session is unknown or expired without a
// refresh token, and ErrRefreshAccessToken when renewal failed now or earlier; in
// the latter case the returned session carries the RefreshAccessTokenError tag.
func (m *Manager) ValidSession(ctx context.Context, sessionID string) (sessions.Session, error) {
	if sessionID == "" {
		return sessions.Session{}, apperrors.ErrUnauthorized
	}
	s, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return sessions.Session{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
		}
		return sessions.Session{}, fmt.Errorf("[token ValidSession] %w", err)
	}

	if s.Error == sessions.RefreshAccessTokenError {
		return s, fmt.Errorf("%w: session %s", apperrors.ErrRefreshAccessToken, s.ID)
	}

	now := NowTimeFunc()
	if !s.ExpiresWithin(now, m.skew) {
		return s, nil
	}

	if !s.HasRefreshToken() {
		if s.IsExpired(now) {
			return sessions.Session{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, apperrors.ErrTokenExpired)
		}
		return s, nil
	}

	// The renewal outlives the request that started it: other callers share its
	// result and a disconnecting browser must not abort a refresh mid-flight.
	v, err, _ := m.renewals.Do(s.ID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.renew(rctx, s.ID)
	})
	renewed, _ := v.(sessions.Session)
	return renewed, err
}

// renew re-reads the session so a renewal completed elsewhere is reused rather than repeated.
func (m *Manager) renew(ctx context.Context, sessionID string) (sessions.Session, error) {
	current, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return sessions.Session{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
		}
		return sessions.Session{}, fmt.Errorf("[token renew] %w", err)
	}
	if current.Error == sessions.RefreshAccessTokenError {
		return current, fmt.Errorf("%w: session %s", apperrors.ErrRefreshAccessToken, current.ID)
	}
	if !current.ExpiresWithin(NowTimeFunc(), m.skew) {
		return current, nil
	}

	log.Info().Str("session", current.ID).Msg("refreshing token")
	resp, err := m.renewer.Renew(ctx, current.RefreshToken)
	if err != nil {
		m.metrics.IncRenewal("failure")
		log.Error().Err(err).Str("session", current.ID).Msg("error refreshing token")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Nothing was spent; the next request tries again.
			return current, fmt.Errorf("[token renew] %w", err)
		}
		// Another instance may have spent the same refresh token first.
		if latest, getErr := m.sessions.Get(ctx, sessionID); getErr == nil &&
			latest.Version > current.Version && latest.Error == "" {
			return latest, nil
		}
		tagged := current.WithError(sessions.RefreshAccessTokenError)
		stored, storeErr := m.sessions.Replace(ctx, current.Version, tagged)
		if storeErr != nil {
			log.Warn().Err(storeErr).Str("session", current.ID).Msg("could not tag session after failed refresh")
			stored = tagged
		}
		return stored, fmt.Errorf("%w: %w", apperrors.ErrRefreshAccessToken, err)
	}
	m.metrics.IncRenewal("success")

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		// Provider did not rotate; the old refresh token stays valid.
		refreshToken = current.RefreshToken
	}
	next := current.WithTokens(resp.AccessToken, refreshToken, sessions.ExpiresAtFrom(NowTimeFunc(), resp.ExpiresIn))

	stored, err := m.sessions.Replace(ctx, current.Version, next)
	if apperrors.Is(err, apperrors.ErrVersionConflict) {
		// Another instance won the race; its tokens are the live ones.
		return m.sessions.Get(ctx, sessionID)
	}
	if err != nil {
		return sessions.Session{}, fmt.Errorf("[token renew] store renewed session: %w", err)
	}
	return stored, nil
}

// End removes the session; used on logout and after a forced re-login.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.sessions.Delete(ctx, sessionID)
}
