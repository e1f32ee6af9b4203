package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PolicyCacheService caches merchant return-policy summaries in Redis.
// A nil client disables caching; cache errors never fail a lookup.
type PolicyCacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// CachedPolicy is the cached policy body
type CachedPolicy struct {
	Merchant string          `json:"merchant"`
	Policy   json.RawMessage `json:"policy"`
	CachedAt time.Time       `json:"cached_at"`
}

// NewPolicyCacheService creates a new policy cache service
func NewPolicyCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *PolicyCacheService {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyCacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// cacheKey generates a cache key for a merchant
func (s *PolicyCacheService) cacheKey(merchant string) string {
	return fmt.Sprintf("sendback:policy:%s", strings.ToLower(strings.TrimSpace(merchant)))
}

// Get retrieves a cached policy; nil means miss
func (s *PolicyCacheService) Get(ctx context.Context, merchant string) *CachedPolicy {
	if s.redis == nil {
		return nil
	}

	key := s.cacheKey(merchant)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to get policy from cache", zap.Error(err), zap.String("key", key))
		}
		return nil
	}

	var cached CachedPolicy
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.Warn("failed to unmarshal cached policy", zap.Error(err))
		return nil
	}

	s.logger.Debug("cache hit for policy", zap.String("merchant", merchant))
	return &cached
}

// Set stores a policy in cache
func (s *PolicyCacheService) Set(ctx context.Context, merchant string, policy json.RawMessage) error {
	if s.redis == nil {
		return nil
	}

	key := s.cacheKey(merchant)
	data, err := json.Marshal(&CachedPolicy{
		Merchant: merchant,
		Policy:   policy,
		CachedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal policy for cache: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to set policy in cache", zap.Error(err), zap.String("key", key))
		return err
	}

	s.logger.Debug("cached policy", zap.String("merchant", merchant), zap.Duration("ttl", s.ttl))
	return nil
}

// Invalidate removes the cached policy of a merchant
func (s *PolicyCacheService) Invalidate(ctx context.Context, merchant string) error {
	if s.redis == nil {
		return nil
	}

	key := s.cacheKey(merchant)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("failed to invalidate policy cache", zap.Error(err), zap.String("key", key))
		return err
	}
	s.logger.Debug("invalidated policy cache", zap.String("merchant", merchant))
	return nil
}

// PolicyFetcher fetches a policy summary from the order service.
type PolicyFetcher interface {
	GetPolicy(ctx context.Context, merchant string) (json.RawMessage, error)
}

// PolicyService answers merchant return-policy lookups, read-through cached.
type PolicyService struct {
	fetcher PolicyFetcher
	cache   *PolicyCacheService
	logger  *zap.Logger
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(fetcher PolicyFetcher, cache *PolicyCacheService, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{fetcher: fetcher, cache: cache, logger: logger}
}

// Lookup returns the policy body and whether it came from cache.
func (s *PolicyService) Lookup(ctx context.Context, merchant string) (json.RawMessage, bool, error) {
	if strings.TrimSpace(merchant) == "" {
		return nil, false, fmt.Errorf("merchant is required")
	}

	if cached := s.cache.Get(ctx, merchant); cached != nil {
		return cached.Policy, true, nil
	}

	policy, err := s.fetcher.GetPolicy(ctx, merchant)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch policy for %q: %w", merchant, err)
	}

	if err := s.cache.Set(ctx, merchant, policy); err != nil {
		s.logger.Warn("failed to cache policy", zap.String("merchant", merchant), zap.Error(err))
	}
	return policy, false, nil
}

// HandlePolicyUpdated drops the cached policy when the upstream changes it.
func (s *PolicyService) HandlePolicyUpdated(ctx context.Context, merchant string) error {
	return s.cache.Invalidate(ctx, merchant)
}
