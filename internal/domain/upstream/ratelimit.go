package upstream

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter for outbound order-service calls,
// with one bucket per path prefix.
type RateLimiter struct {
	buckets map[string]*tokenBucket
	mu      sync.RWMutex
	config  RateLimitConfig
}

// RateLimitConfig holds rate limit configuration.
type RateLimitConfig struct {
	DefaultRPS   int
	DefaultBurst int
	// Custom limits per API path prefix. Longest matching prefix wins.
	PathLimits map[string]PathLimit
}

// PathLimit defines rate limit for a specific API path.
type PathLimit struct {
	RPS   int
	Burst int
}

// DefaultRateLimitConfig returns the limits used when none are configured.
// An order page fans out four reads, so order reads get the larger burst.
func DefaultRateLimitConfig(rps, burst int) RateLimitConfig {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return RateLimitConfig{
		DefaultRPS:   rps,
		DefaultBurst: burst,
		PathLimits: map[string]PathLimit{
			"/order/":  {RPS: rps, Burst: burst},
			"/orders":  {RPS: rps, Burst: burst / 2},
			"/ingest/": {RPS: max(rps/4, 1), Burst: max(burst/8, 1)},
			"/policy":  {RPS: max(rps/2, 1), Burst: max(burst/4, 1)},
		},
	}
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rps, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

// take attempts to take a token from the bucket.
// Returns the time to wait if no tokens are available.
func (tb *tokenBucket) take() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}

	// Reserve the token so concurrent waiters queue up behind each other.
	deficit := 1 - tb.tokens
	tb.tokens--
	waitSeconds := deficit / tb.refillRate
	return time.Duration(waitSeconds * float64(time.Second))
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		config:  config,
	}
}

// Wait blocks until a request can be made for the given path.
// Returns an error if the context is cancelled while waiting.
func (rl *RateLimiter) Wait(ctx context.Context, path string) error {
	bucket := rl.getBucket(path)
	waitTime := bucket.take()

	if waitTime == 0 {
		return nil
	}

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (rl *RateLimiter) getBucket(path string) *tokenBucket {
	key, rps, burst := rl.limitFor(path)

	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if bucket, exists = rl.buckets[key]; exists {
		return bucket
	}

	bucket = newTokenBucket(rps, burst)
	rl.buckets[key] = bucket
	return bucket
}

// limitFor resolves the bucket key and limits for path.
func (rl *RateLimiter) limitFor(path string) (key string, rps, burst int) {
	key, rps, burst = "default", rl.config.DefaultRPS, rl.config.DefaultBurst
	best := 0
	for prefix, limit := range rl.config.PathLimits {
		if strings.HasPrefix(path, prefix) && len(prefix) > best {
			key, rps, burst, best = prefix, limit.RPS, limit.Burst, len(prefix)
		}
	}
	return key, rps, burst
}

// BucketStatus represents the current state of a rate limit bucket.
type BucketStatus struct {
	AvailableTokens float64 `json:"available_tokens"`
	MaxTokens       float64 `json:"max_tokens"`
	RefillRate      float64 `json:"refill_rate"`
}

// GetStatus returns the current status of all rate limit buckets.
func (rl *RateLimiter) GetStatus() map[string]BucketStatus {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	status := make(map[string]BucketStatus)
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		status[key] = BucketStatus{
			AvailableTokens: bucket.tokens,
			MaxTokens:       bucket.maxTokens,
			RefillRate:      bucket.refillRate,
		}
		bucket.mu.Unlock()
	}
	return status
}
