package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nivaas/property-system/internal/core/ports"
)

const defaultPermissionTTL = 5 * time.Minute

// Key format: perm:user:<id> / perm:role:<id> → JSON array of permission keys.
const (
	userKeyPrefix  = "perm:user:"
	roleKeyPrefix  = "perm:role:"
	lastUpdatedKey = "perm:last_updated"
)

// PermissionCache is a Redis-backed ports.PermissionCache for deployments
// where cache entries and invalidations must be shared across instances.
// Same TTL + explicit-invalidation semantics as the in-memory cache.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache wraps the given Redis client. A non-positive TTL falls
// back to the 5 minute default.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = defaultPermissionTTL
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func (c *PermissionCache) GetUserPermissions(ctx context.Context, userID string, resolve ports.PermissionResolverFunc) ([]string, error) {
	return c.getOrCompute(ctx, userKeyPrefix+userID, resolve)
}

func (c *PermissionCache) GetRolePermissions(ctx context.Context, roleID string, resolve ports.PermissionResolverFunc) ([]string, error) {
	return c.getOrCompute(ctx, roleKeyPrefix+roleID, resolve)
}

func (c *PermissionCache) getOrCompute(ctx context.Context, key string, resolve ports.PermissionResolverFunc) ([]string, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var permissions []string
		if uerr := json.Unmarshal([]byte(raw), &permissions); uerr == nil {
			return permissions, nil
		}
		// Corrupt entry: fall through and recompute.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("permission cache get: %w", err)
	}

	permissions, err := resolve(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(permissions)
	if err != nil {
		return nil, fmt.Errorf("permission cache encode: %w", err)
	}
	// Best effort: a failed store only costs a recomputation later.
	_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
	_ = c.client.Set(ctx, lastUpdatedKey, time.Now().UTC().Format(time.RFC3339Nano), 0).Err()

	return permissions, nil
}

func (c *PermissionCache) InvalidateUser(ctx context.Context, userID string) {
	_ = c.client.Del(ctx, userKeyPrefix+userID).Err()
}

func (c *PermissionCache) InvalidateRole(ctx context.Context, roleID string) {
	_ = c.client.Del(ctx, roleKeyPrefix+roleID).Err()
}

func (c *PermissionCache) InvalidateAll(ctx context.Context) {
	for _, prefix := range []string{userKeyPrefix, roleKeyPrefix} {
		iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			_ = c.client.Del(ctx, iter.Val()).Err()
		}
	}
	_ = c.client.Del(ctx, lastUpdatedKey).Err()
}

func (c *PermissionCache) Stats(ctx context.Context) ports.CacheStats {
	stats := ports.CacheStats{
		CachedUsers: c.countKeys(ctx, userKeyPrefix+"*"),
		CachedRoles: c.countKeys(ctx, roleKeyPrefix+"*"),
	}
	if raw, err := c.client.Get(ctx, lastUpdatedKey).Result(); err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			stats.LastUpdated = &ts
		}
	}
	return stats
}

func (c *PermissionCache) countKeys(ctx context.Context, pattern string) int {
	n := 0
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}
