package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadforge/automation/internal/domain/model"
)

const enabledAutomationsKey = "automation:registry:enabled"

// RegistryCache caches the enabled-automation registry in Redis so the worker
// and evaluator do not hit Postgres on every event. A nil client disables
// caching entirely; every call becomes a no-op miss.
type RegistryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRegistryCache creates a RegistryCache. client may be nil when Redis is
// not configured.
func NewRegistryCache(client redis.UniversalClient, ttl time.Duration) *RegistryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RegistryCache{client: client, ttl: ttl}
}

// GetEnabled returns the cached enabled-automation list. The second return is
// false on a miss, an unconfigured client, or an undecodable payload; a stale
// or corrupt entry degrades to a miss rather than an error.
func (c *RegistryCache) GetEnabled(ctx context.Context) ([]model.Automation, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, enabledAutomationsKey).Bytes()
	if err != nil {
		return nil, false
	}

	var automations []model.Automation
	if err := json.Unmarshal(raw, &automations); err != nil {
		// Drop the bad entry so the next read repopulates it.
		_ = c.client.Del(ctx, enabledAutomationsKey).Err()
		return nil, false
	}
	return automations, true
}

// SetEnabled stores the enabled-automation list with the cache TTL.
func (c *RegistryCache) SetEnabled(ctx context.Context, automations []model.Automation) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(automations)
	if err != nil {
		return fmt.Errorf("encode registry cache entry: %w", err)
	}
	if err := c.client.Set(ctx, enabledAutomationsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached registry. Called after any automation write so
// readers see the change on their next lookup instead of after TTL expiry.
func (c *RegistryCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, enabledAutomationsKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Health checks the Redis connection. Reports healthy when caching is
// disabled.
func (c *RegistryCache) Health(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
