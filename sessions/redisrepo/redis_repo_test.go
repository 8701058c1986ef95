package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/manishahirrao/postpilot/sessions/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redisrepo.RedisRepo) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
	return mr, redisrepo.NewRedisRepo(rdb, "test:")
}

func TestRedisRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRedis(t)

	_, err := repo.Get(ctx, sessions.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	store := sessions.NewStore(repo)
	require.NoError(t, store.Save(ctx, sessions.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: 99}))

	raw, err := mr.Get("test:" + sessions.KeyTokenExpiresAt)
	require.NoError(t, err)
	require.Equal(t, "99", raw)

	require.NoError(t, store.Clear(ctx))
	require.False(t, mr.Exists("test:"+sessions.KeyAccessToken))
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRedis(t)

	unlock, err := repo.Lock(ctx, "refresh", time.Second)
	require.NoError(t, err)
	require.True(t, mr.Exists("test:lock:refresh"))

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	_, err = repo.Lock(waitCtx, "refresh", time.Second)
	require.ErrorIs(t, err, apperrors.ErrLockTimeout)

	unlock()
	require.False(t, mr.Exists("test:lock:refresh"))

	// an expired holder cannot release a lock that was taken over
	stale, err := repo.Lock(ctx, "refresh", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)
	fresh, err := repo.Lock(ctx, "refresh", time.Second)
	require.NoError(t, err)
	stale()
	require.True(t, mr.Exists("test:lock:refresh"))
	fresh()
}
