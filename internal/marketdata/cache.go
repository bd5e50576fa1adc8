package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// SeriesCacheEntry is a cached price series with its cache metadata.
type SeriesCacheEntry struct {
	Series    *models.PriceSeries `json:"series"`
	CachedAt  time.Time           `json:"cached_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// SeriesCacheStats is a snapshot of the cache performance counters.
type SeriesCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// RedisSeriesCache caches fetched price series in Redis, keyed by
// (symbol, start, end, interval) with a time-to-live invalidation policy.
// It belongs to the data-source side of the boundary; the analytics engine
// itself holds no state.
type RedisSeriesCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.RWMutex
	stats SeriesCacheStats
}

// NewRedisSeriesCache creates a Redis-backed series cache.
func NewRedisSeriesCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSeriesCache {
	return &RedisSeriesCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "series_cache:",
		logger: logger,
	}
}

func (c *RedisSeriesCache) key(symbol string, start, end time.Time, interval string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", c.prefix, symbol,
		start.Format("2006-01-02"), end.Format("2006-01-02"), interval)
}

// Get returns the cached series for the request key, if present.
func (c *RedisSeriesCache) Get(ctx context.Context, symbol string, start, end time.Time, interval string) (*models.PriceSeries, bool) {
	data, err := c.redis.Get(ctx, c.key(symbol, start, end, interval)).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error reading series cache")
		c.miss()
		return nil, false
	}

	var entry SeriesCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to decode cached series")
		c.miss()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return entry.Series, true
}

// Set stores a fetched series under the request key with the cache TTL.
func (c *RedisSeriesCache) Set(ctx context.Context, symbol string, start, end time.Time, interval string, series *models.PriceSeries) {
	now := time.Now()
	entry := SeriesCacheEntry{
		Series:    series,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to encode series for cache")
		return
	}
	if err := c.redis.Set(ctx, c.key(symbol, start, end, interval), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error writing series cache")
		return
	}
	c.mu.Lock()
	c.stats.Sets++
	c.mu.Unlock()
}

// Invalidate drops the cached entry for one request key.
func (c *RedisSeriesCache) Invalidate(ctx context.Context, symbol string, start, end time.Time, interval string) error {
	return c.redis.Del(ctx, c.key(symbol, start, end, interval)).Err()
}

// Stats returns a snapshot of the cache counters.
func (c *RedisSeriesCache) Stats() SeriesCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *RedisSeriesCache) miss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
