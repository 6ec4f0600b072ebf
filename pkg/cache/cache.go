// Package cache fronts Redis for hot reads (catalog pages, token denylist).
// Every operation no-ops safely when Redis is down, so callers can treat a
// miss and an outage the same way.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/metrics"
)

var (
	// RDB is nil until Connect succeeds; helpers check it before use.
	RDB *redis.Client
	Ctx = context.Background()
)

// Connect dials Redis and pings it. On failure RDB stays nil and every
// helper degrades to a no-op, so callers decide whether that is fatal.
func Connect() error {
	c := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})
	if err := c.Ping(Ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = c
	return nil
}

// Get unmarshals the cached value at key into dest. The return value is
// true only on a hit that decoded cleanly.
func Get(key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}
	raw, err := RDB.Get(Ctx, key).Bytes()
	if err != nil || json.Unmarshal(raw, dest) != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

// Set stores value as JSON under key for ttl.
func Set(key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return RDB.Set(Ctx, key, data, ttl).Err()
}

// Del drops the given keys.
func Del(keys ...string) error {
	if RDB == nil {
		return nil
	}
	return RDB.Del(Ctx, keys...).Err()
}

// Has reports whether key exists without reading it.
func Has(key string) bool {
	if RDB == nil {
		return false
	}
	n, err := RDB.Exists(Ctx, key).Result()
	return err == nil && n > 0
}
