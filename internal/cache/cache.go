// Package cache implements the Redis-backed response cache. Caching is a
// pure optimization: every failure degrades to a cache miss and never fails
// the surrounding operation.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Cache stores JSON-encoded responses in Redis with per-entry TTLs.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis at redisURL. When Redis is unreachable the returned
// cache is disabled rather than failing startup, and the API serves every
// request uncached.
func New(redisURL string) *Cache {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, caching disabled", "error", err)
		return &Cache{}
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, caching disabled", "addr", opts.Addr, "error", err)
		return &Cache{}
	}

	slog.Info("cache: redis connected", "addr", opts.Addr)
	return &Cache{rdb: rdb}
}

// Disabled returns a cache that never hits and swallows writes. Used by the
// probe CLI and in tests.
func Disabled() *Cache {
	return &Cache{}
}

// Get unmarshals the cached value for key into dest, reporting whether a
// non-expired entry existed.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.Debug("cache: stale entry dropped", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key with the given TTL. Write failures are logged
// and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		slog.Debug("cache: marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Debug("cache: write failed", "key", key, "error", err)
	}
}

// Healthy reports whether Redis answers a ping within the ping timeout.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c.rdb == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err() == nil
}
