// Package sessionstest holds the behaviour every sessions.Repo implementation must share.
package sessionstest

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/stretchr/testify/require"
)

func newSession(id string) sessions.Session {
	return sessions.Session{
		ID:           id,
		UserID:       "user-1",
		Email:        "jane@example.com",
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    1_700_000_000,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// RunRepoContract exercises newRepo against the sessions.Repo contract.
func RunRepoContract(t *testing.T, newRepo func(t *testing.T) sessions.Repo) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newSession("s1"))
		require.NoError(t, err)
		require.Equal(t, int64(1), created.Version)

		got, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, created.AccessToken, got.AccessToken)
		require.Equal(t, created.RefreshToken, got.RefreshToken)
		require.Equal(t, created.ExpiresAt, got.ExpiresAt)
		require.Equal(t, int64(1), got.Version)
	})

	t.Run("create duplicate fails", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newSession("s1"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newSession("s1"))
		require.Error(t, err)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "nope")
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("replace bumps version", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newSession("s1"))
		require.NoError(t, err)

		next, err := repo.Replace(ctx, created.Version, created.WithTokens("a2", "r2", 1_700_000_300))
		require.NoError(t, err)
		require.Equal(t, int64(2), next.Version)

		got, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, "a2", got.AccessToken)
		require.Equal(t, "r2", got.RefreshToken)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("replace with stale version conflicts", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newSession("s1"))
		require.NoError(t, err)
		_, err = repo.Replace(ctx, created.Version, created.WithTokens("a2", "r2", 1))
		require.NoError(t, err)

		_, err = repo.Replace(ctx, created.Version, created.WithTokens("a3", "r3", 2))
		require.ErrorIs(t, err, apperrors.ErrVersionConflict)

		got, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, "a2", got.AccessToken)
	})

	t.Run("replace missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Replace(ctx, 1, newSession("ghost"))
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newSession("s1"))
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, "s1"))
		require.NoError(t, repo.Delete(ctx, "s1"))

		_, err = repo.Get(ctx, "s1")
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, sessions.Session{})
		require.Error(t, err)
		_, err = repo.Get(ctx, "")
		require.Error(t, err)
		require.Error(t, repo.Delete(ctx, ""))
	})
}
