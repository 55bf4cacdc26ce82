package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"meetingindex.app/internal/config"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

const positionKeyPrefix = "geocode:"

// RedisPositionCacheAdapter implements the PositionCache port on Redis,
// letting the server expire entries natively instead of filtering on read
type RedisPositionCacheAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPositionCacheAdapter creates a Redis-backed position cache and
// verifies the connection
func NewRedisPositionCacheAdapter(cfg *config.RedisConfig, ttl time.Duration) (*RedisPositionCacheAdapter, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("redis config cannot be nil", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewDatabaseError("failed to connect to Redis", err)
	}

	return &RedisPositionCacheAdapter{client: client, ttl: ttl}, nil
}

type redisPositionEntry struct {
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	RequestedAt time.Time `json:"requested_at"`
}

// Get returns the cached entry for query, or nil when it is absent or expired
func (c *RedisPositionCacheAdapter) Get(ctx context.Context, query string) (*ports.CachedPosition, error) {
	val, err := c.client.Get(ctx, positionKeyPrefix+query).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("redis get operation failed", err)
	}

	var entry redisPositionEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, errors.NewJSONParseError(fmt.Sprintf("corrupt cache entry for %q", query), err)
	}

	return &ports.CachedPosition{
		Query:       query,
		Latitude:    entry.Latitude,
		Longitude:   entry.Longitude,
		RequestedAt: entry.RequestedAt,
	}, nil
}

// Put stores the entry under the cache TTL
func (c *RedisPositionCacheAdapter) Put(ctx context.Context, entry ports.CachedPosition) error {
	payload, err := json.Marshal(redisPositionEntry{
		Latitude:    entry.Latitude,
		Longitude:   entry.Longitude,
		RequestedAt: entry.RequestedAt,
	})
	if err != nil {
		return errors.NewJSONParseError("failed to encode cache entry", err)
	}

	if err := c.client.Set(ctx, positionKeyPrefix+entry.Query, payload, c.ttl).Err(); err != nil {
		return errors.NewDatabaseError("redis set operation failed", err)
	}
	return nil
}

// Close closes the Redis client connection
func (c *RedisPositionCacheAdapter) Close() error {
	if err := c.client.Close(); err != nil {
		return errors.NewDatabaseError("failed to close Redis connection", err)
	}
	return nil
}
