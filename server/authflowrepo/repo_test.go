package authflowrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/server/authflowrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func runRepoTests(t *testing.T, repo authflowrepo.Repo) {
	ctx := context.Background()
	state := authflowrepo.AuthFlowState{CodeVerifier: "v", Nonce: "n", ReturnURL: "/my-assets", CreatedAt: time.Now().UTC().Truncate(time.Second)}

	t.Run("take returns and removes", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "s1", state))

		got, err := repo.Take(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, state, got)

		_, err = repo.Take(ctx, "s1")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("duplicate state rejected", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "s2", state))
		require.Error(t, repo.Put(ctx, "s2", state))
	})

	t.Run("empty state rejected", func(t *testing.T) {
		require.Error(t, repo.Put(ctx, "", state))
		_, err := repo.Take(ctx, "")
		require.Error(t, err)
	})
}

func TestInMemoryRepo(t *testing.T) {
	runRepoTests(t, authflowrepo.NewInMemoryRepo(time.Minute))
}

func TestRedisRepo(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := authflowrepo.NewRedisRepo(client, time.Minute)
	runRepoTests(t, repo)

	t.Run("expires", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, "old", authflowrepo.AuthFlowState{Nonce: "n"}))
		mr.FastForward(2 * time.Minute)
		_, err := repo.Take(ctx, "old")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
