package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

const redisKeyPrefix = "mail-clarity:verdict:"

// RedisCache stores verdicts in Redis and relies on key expiry instead of sweeping
type RedisCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

type redisEntry struct {
	Verdict   core.GenerativeVerdict `json:"verdict"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewRedisCache connects to Redis at addr
func NewRedisCache(addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Using Redis verdict cache", zap.String("addr", addr))
	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client redis.UniversalClient, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get returns the entry for key, or core.ErrNotFound
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read Redis cache: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return &core.CacheEntry{Key: key, Verdict: e.Verdict, CreatedAt: e.CreatedAt, ExpiresAt: e.ExpiresAt}, nil
}

// Set stores an entry with the remaining lifetime as its TTL
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(redisEntry{Verdict: entry.Verdict, CreatedAt: entry.CreatedAt, ExpiresAt: entry.ExpiresAt})
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+entry.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write Redis cache: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys itself
func (c *RedisCache) Cleanup(context.Context) error {
	return nil
}

// Close closes the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
