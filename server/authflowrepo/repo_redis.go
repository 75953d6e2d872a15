package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mce:authflow:"

// RedisRepo shares auth flow states between instances behind a load balancer.
type RedisRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRepo(client redis.UniversalClient, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Put(ctx context.Context, state string, authState AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	b, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("[authflowrepo Put] marshal: %w", err)
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+state, b, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("[authflowrepo Put] %w", err)
	}
	if !ok {
		return fmt.Errorf("[authflowrepo Put] state %s already exists", state)
	}
	return nil
}

func (r *RedisRepo) Take(ctx context.Context, state string) (AuthFlowState, error) {
	if state == "" {
		return AuthFlowState{}, errors.New("state cannot be empty")
	}
	b, err := r.client.GetDel(ctx, keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return AuthFlowState{}, fmt.Errorf("%w: auth flow state", apperrors.ErrNotFound)
	}
	if err != nil {
		return AuthFlowState{}, fmt.Errorf("[authflowrepo Take] %w", err)
	}
	var out AuthFlowState
	if err := json.Unmarshal(b, &out); err != nil {
		return AuthFlowState{}, fmt.Errorf("[authflowrepo Take] unmarshal: %w", err)
	}
	return out, nil
}
