package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", Config{Host: "cache", Port: 6380}.Addr())
	assert.Equal(t, "[::1]:6379", Config{Host: "::1", Port: 6379}.Addr())
}

func TestCache_GuardsAndMiss(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	assert.ErrorIs(t, cache.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, cache.Set(ctx, "k", make(chan int), time.Minute), ErrCacheSerialization)

	var v int
	assert.ErrorIs(t, cache.Get(ctx, "absent", &v), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", "not a number", time.Minute))
	assert.ErrorIs(t, cache.Get(ctx, "k", &v), ErrCacheSerialization)

	n, err := cache.GetInt64(ctx, "counter")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_IncrWindowExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	_, err := cache.IncrWindow(ctx, "w", 0)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)

	for want := int64(1); want <= 3; want++ {
		n, err := cache.IncrWindow(ctx, "w", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, 10*time.Second, mr.TTL("w"), "later hits must not extend the window")

	mr.FastForward(11 * time.Second)
	n, err := cache.IncrWindow(ctx, "w", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
