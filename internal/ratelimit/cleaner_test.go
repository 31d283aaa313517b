package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_RemovesExpiredWindows(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	old := float64(time.Now().Add(-time.Hour).UnixMilli())
	fresh := float64(time.Now().UnixMilli())
	require.NoError(t, client.ZAdd(ctx, "ratelimit:user:1", redis.Z{Score: old, Member: "a"}).Err())
	require.NoError(t, client.ZAdd(ctx, "ratelimit:user:2", redis.Z{Score: old, Member: "b"}, redis.Z{Score: fresh, Member: "c"}).Err())

	c := NewCleaner(client, nil, time.Minute, testLogger(), time.Minute)
	assert.Equal(t, 1, c.sweep(ctx))

	exists, err := client.Exists(ctx, "ratelimit:user:1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	members, err := client.ZRange(ctx, "ratelimit:user:2", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, members)
}

func TestMemoryLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger()).(*MemoryLimiter)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "user:"+strconv.Itoa(i), 5, time.Minute)
		require.NoError(t, err)
	}

	limiter.Cleanup(time.Hour)
	assert.Len(t, limiter.buckets, 3)

	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup(time.Millisecond)
	assert.Empty(t, limiter.buckets)
}

func TestAdaptiveLimiter_FallsBackWithStricterLimit(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	cleanup()

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "user:9", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	_, err := limiter.Check(ctx, "user:9", 4, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}
