package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/and161185/estatedesk/internal/cache"
)

func TestCached_BlocksAfterMaxFailsAndResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewCached(cache.NewRedisCache(client), Policy{Window: time.Minute, MaxFails: 3, BlockFor: 5 * time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Failure(ctx, key)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	ok, _, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	blocked, wait, err := l.Failure(ctx, key)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 5*time.Minute, wait)

	ok, wait, err = l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Minute, wait)

	other := NewKey(ScopeUser, "alice", "10.0.0.1")
	ok, _, err = l.Allow(ctx, other)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Success(ctx, key))
	ok, _, err = l.Allow(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCached_MemoryBackend(t *testing.T) {
	l := NewCached(cache.NewMemoryCache(), Policy{Window: time.Minute, MaxFails: 1, BlockFor: time.Minute})
	blocked, _, err := l.Failure(context.Background(), key)
	require.NoError(t, err)
	require.True(t, blocked)
	ok, _, err := l.Allow(context.Background(), key)
	require.NoError(t, err)
	require.False(t, ok)
}
