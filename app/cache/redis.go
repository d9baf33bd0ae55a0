package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultVectorTTL bounds how long a shared embedding entry survives a
// model change or provider-side drift.
const DefaultVectorTTL = 7 * 24 * time.Hour

// Cache wraps a Redis client used as the shared second-level embedding
// cache. It is optional: a nil *Cache is a valid "always miss" cache.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis cache client and verifies the connection
func NewCache(addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// GetVector retrieves a cached embedding. The second return value reports a
// hit; any Redis error is returned as a miss with the error attached so
// callers can degrade to the provider.
func (c *Cache) GetVector(ctx context.Context, key string) ([]float32, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		// Invalid payload: drop it and treat as a miss
		c.client.Del(ctx, key)
		return nil, false, nil
	}

	return vector, true, nil
}

// SetVector stores an embedding with the default TTL
func (c *Cache) SetVector(ctx context.Context, key string, vector []float32) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, DefaultVectorTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// Health returns cache health information for the stats endpoint
func (c *Cache) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if c == nil {
		health["status"] = "disabled"
		return health
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		health["key_count"] = dbSize
	}

	return health
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
