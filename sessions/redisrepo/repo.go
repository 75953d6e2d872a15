package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mce:session:"

// Repo keeps sessions in Redis so several editor instances share one token record per user.
// Replace uses WATCH/MULTI so a renewal racing on another instance loses cleanly.
type Repo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ sessions.Repo = (*Repo)(nil)

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client redis.UniversalClient, ttl time.Duration) *Repo {
	return &Repo{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *Repo) Create(ctx context.Context, session sessions.Session) (sessions.Session, error) {
	if session.ID == "" {
		return sessions.Session{}, fmt.Errorf("sessionID is required")
	}
	session.Version = 1
	data, err := json.Marshal(session)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("[redisrepo Create] marshal: %w", err)
	}

	ok, err := r.client.SetNX(ctx, key(session.ID), data, r.ttl).Result()
	if err != nil {
		return sessions.Session{}, fmt.Errorf("[redisrepo Create] %w", err)
	}
	if !ok {
		return sessions.Session{}, fmt.Errorf("session %s already exists", session.ID)
	}
	return session, nil
}

func (r *Repo) Get(ctx context.Context, sessionID string) (sessions.Session, error) {
	if sessionID == "" {
		return sessions.Session{}, fmt.Errorf("sessionID is required")
	}
	data, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sessions.Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return sessions.Session{}, fmt.Errorf("[redisrepo Get] %w", err)
	}
	return decode(data)
}

func (r *Repo) Replace(ctx context.Context, expectedVersion int64, next sessions.Session) (sessions.Session, error) {
	if next.ID == "" {
		return sessions.Session{}, fmt.Errorf("sessionID is required")
	}
	k := key(next.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		current, err := decode(data)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("%w: stored %d, expected %d", apperrors.ErrVersionConflict, current.Version, expectedVersion)
		}

		next.Version = expectedVersion + 1
		updated, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, updated, redis.KeepTTL)
			return nil
		})
		return err
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return sessions.Session{}, fmt.Errorf("%w: concurrent write", apperrors.ErrVersionConflict)
	}
	if err != nil {
		return sessions.Session{}, err
	}
	return next, nil
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[redisrepo Delete] %w", err)
	}
	return nil
}

func decode(data []byte) (sessions.Session, error) {
	var s sessions.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return sessions.Session{}, fmt.Errorf("[redisrepo] decode session: %w", err)
	}
	return s, nil
}
