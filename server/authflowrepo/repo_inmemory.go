package authflowrepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/patrickmn/go-cache"
)

// InMemoryRepo keeps auth flow states in a process-local expiring cache.
type InMemoryRepo struct {
	mu     sync.Mutex
	states *cache.Cache
	ttl    time.Duration
}

func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		states: cache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

func (r *InMemoryRepo) Put(_ context.Context, state string, authState AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	return r.states.Add(state, authState, r.ttl)
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (AuthFlowState, error) {
	if state == "" {
		return AuthFlowState{}, errors.New("state cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, found := r.states.Get(state)
	if !found {
		return AuthFlowState{}, fmt.Errorf("%w: auth flow state", apperrors.ErrNotFound)
	}
	r.states.Delete(state)
	return v.(AuthFlowState), nil
}
