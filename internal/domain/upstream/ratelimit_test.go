package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitForLongestPrefix(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		DefaultRPS:   10,
		DefaultBurst: 10,
		PathLimits: map[string]PathLimit{
			"/order/":        {RPS: 5, Burst: 5},
			"/order/1/items": {RPS: 1, Burst: 1},
		},
	})

	key, rps, burst := rl.limitFor("/order/1/items")
	assert.Equal(t, "/order/1/items", key)
	assert.Equal(t, 1, rps)
	assert.Equal(t, 1, burst)

	key, _, _ = rl.limitFor("/order/2")
	assert.Equal(t, "/order/", key)

	key, rps, _ = rl.limitFor("/unknown")
	assert.Equal(t, "default", key)
	assert.Equal(t, 10, rps)
}

func TestWaitWithinBurstDoesNotBlock(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitConfig(10, 4))

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, rl.Wait(context.Background(), "/order/1"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	status := rl.GetStatus()
	require.Contains(t, status, "/order/")
	assert.Equal(t, float64(4), status["/order/"].MaxTokens)
}

func TestWaitCancelledWhenBucketEmpty(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{DefaultRPS: 1, DefaultBurst: 1})
	require.NoError(t, rl.Wait(context.Background(), "/x"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx, "/x"), context.DeadlineExceeded)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig(0, 0)
	assert.Equal(t, 20, cfg.DefaultRPS)
	assert.Equal(t, 40, cfg.DefaultBurst)
	assert.Contains(t, cfg.PathLimits, "/ingest/")
}
