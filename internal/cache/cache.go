package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// invalidator is a shared remote that can tell peers a key changed.
type invalidator interface {
	Invalidate(ctx context.Context, key string) error
	WatchInvalidations(ctx context.Context, fn func(key string)) error
}

// TwoPhaseCache reads through a local LRU (L1) to a shared remote (L2).
// When the remote supports it, writes on one node evict the key from every
// other node's L1, so a fresh fleet snapshot is not shadowed by a stale
// local copy.
type TwoPhaseCache struct {
	local  *LRUCache
	remote domain.Cache
	l1TTL  time.Duration

	inv    invalidator
	cancel context.CancelFunc
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	return newTwoPhase(NewLRUCache(cfg.LocalMaxSize), remote, time.Duration(cfg.LocalTTL)*time.Second), nil
}

func newTwoPhase(local *LRUCache, remote domain.Cache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	c := &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}

	inv, ok := remote.(invalidator)
	if !ok {
		return c
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := inv.WatchInvalidations(ctx, func(key string) {
		_ = local.Delete(ctx, key)
	})
	if err != nil {
		cancel()
		slog.Warn("L1 invalidation disabled, local entries expire by TTL only",
			"l1_ttl", l1TTL,
			"error", err,
		)
		return c
	}

	c.inv = inv
	c.cancel = cancel
	return c
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes L2 then L1 and tells peers to drop their copy.
// L1 keeps the entry for at most its own TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}

	c.broadcast(ctx, key)
	return nil
}

// Delete removes from both levels and from peers' L1.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.remote.Delete(ctx, key); err != nil {
		return err
	}

	c.broadcast(ctx, key)
	return nil
}

func (c *TwoPhaseCache) broadcast(ctx context.Context, key string) {
	if c.inv == nil {
		return
	}
	if err := c.inv.Invalidate(ctx, key); err != nil {
		slog.Warn("failed to broadcast cache invalidation",
			"key", key,
			"error", err,
		)
	}
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close stops invalidation and closes both levels.
func (c *TwoPhaseCache) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
