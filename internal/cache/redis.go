package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "liftwatch:"

	// invalidationChannel carries "<node id>|<key>" for keys whose value
	// changed, so peers can drop their local copy.
	invalidationChannel = "liftwatch:cache:invalidate"
)

// RedisCache implements Cache using Redis. It is shared by every node that
// serves the same fleet: the Pro tier cache and L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
	nodeID string
}

// NewRedisCache creates a new Redis cache and checks connectivity.
func NewRedisCache(cfg domain.CacheConfig) (*RedisCache, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{
		client: client,
		nodeID: uuid.New().String(),
	}, nil
}

// Get retrieves a value from Redis. Returns nil, nil on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value in Redis. A non-positive ttl stores it without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Invalidate tells the other nodes that key changed.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Publish(ctx, invalidationChannel, c.nodeID+"|"+key).Err()
}

// WatchInvalidations calls fn with every key another node invalidates,
// until ctx is done. It returns once the subscription is confirmed.
func (c *RedisCache) WatchInvalidations(ctx context.Context, fn func(key string)) error {
	pubsub := c.client.Subscribe(ctx, invalidationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", invalidationChannel, err)
	}

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				node, key, found := strings.Cut(m.Payload, "|")
				if !found || node == c.nodeID {
					continue
				}
				slog.Debug("cache key invalidated by peer",
					"key", key,
					"node_id", node,
				)
				fn(key)
			}
		}
	}()

	return nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
