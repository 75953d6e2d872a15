package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/patrickmn/go-cache"
)

// InMemoryRepo is a process-local Repo. Records expire ttl after creation;
// replacing a session keeps its original expiry.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions *cache.Cache // sessionID -> Session
	ttl      time.Duration
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a repository whose records live for ttl; ttl <= 0 never expires.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	if ttl <= 0 {
		return &InMemoryRepo{sessions: cache.New(cache.NoExpiration, 0), ttl: cache.NoExpiration}
	}
	return &InMemoryRepo{
		sessions: cache.New(ttl, ttl/2),
		ttl:      ttl,
	}
}

// Create stores a new session at version 1
func (r *InMemoryRepo) Create(_ context.Context, session Session) (Session, error) {
	if session.ID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	session.Version = 1
	if err := r.sessions.Add(session.ID, session, r.ttl); err != nil {
		return Session{}, fmt.Errorf("session %s already exists", session.ID)
	}
	return session, nil
}

// Get retrieves a session by ID
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	v, ok := r.sessions.Get(sessionID)
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}
	return v.(Session), nil
}

// Replace swaps in next when the stored version equals expectedVersion
func (r *InMemoryRepo) Replace(_ context.Context, expectedVersion int64, next Session) (Session, error) {
	if next.ID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, expiresAt, ok := r.sessions.GetWithExpiration(next.ID)
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}
	current := v.(Session)
	if current.Version != expectedVersion {
		return Session{}, fmt.Errorf("%w: stored %d, expected %d", apperrors.ErrVersionConflict, current.Version, expectedVersion)
	}

	remaining := cache.NoExpiration
	if !expiresAt.IsZero() {
		remaining = time.Until(expiresAt)
		if remaining <= 0 {
			return Session{}, apperrors.ErrSessionNotFound
		}
	}
	next.Version = expectedVersion + 1
	r.sessions.Set(next.ID, next, remaining)
	return next, nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.Delete(sessionID)
	return nil
}
