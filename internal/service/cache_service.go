package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trackvote/pkg/redis"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheService memoizes read-side payloads in Redis. A nil Redis client turns
// every call into a pass-through to the loader. Admission never reads it.
type CacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = redis.TTLDashboard
	}
	return &CacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether a Redis backend is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

func (c *CacheService) keyDashboard() string {
	return c.redis.KeyBuilder.KeyDashboard()
}

func (c *CacheService) keyResults(track string) string {
	return c.redis.KeyBuilder.KeyResults(track)
}

func (c *CacheService) keyTeams() string {
	return c.redis.KeyBuilder.KeyTeamsSummary()
}

// loadTimeout bounds a shared cache-miss load
const loadTimeout = 10 * time.Second

// cached implements cache-aside for one key. Concurrent misses on the same
// key share a single load. refresh skips the read but still repopulates.
func cached[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, refresh bool, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	if !refresh {
		raw, err := c.redis.Get(ctx, key)
		switch {
		case err == nil:
			var value T
			if jsonErr := json.Unmarshal([]byte(raw), &value); jsonErr == nil {
				return value, nil
			} else {
				c.logger.Warn("Cache entry corrupted, falling back to storage",
					zap.String("key", key),
					zap.Error(jsonErr))
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("Cache error, falling back to storage",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// shared by every waiter, so it must outlive the caller that started it
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		value, err := load(lctx)
		if err != nil {
			return value, err
		}
		c.store(key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// store writes value under key; failures are logged and otherwise ignored
func (c *CacheService) store(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.redis.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached read-side payload. It runs synchronously so a
// reader that follows a write never sees the pre-write payload.
func (c *CacheService) Invalidate(ctx context.Context, reason string) {
	if !c.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := c.redis.InvalidatePattern(ctx, c.redis.KeyBuilder.KeyPattern()); err != nil {
		c.logger.Error("Failed to invalidate caches",
			zap.String("reason", reason),
			zap.Error(fmt.Errorf("invalidate pattern: %w", err)))
		return
	}

	c.logger.Debug("Caches invalidated", zap.String("reason", reason))
}
