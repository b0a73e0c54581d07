// Package cache provides the in-process permission cache: a time-bound
// memoization of resolved permission sets keyed by user or role identity.
// It is advisory — correctness never depends on it. Worst case a caller sees
// a permission set up to TTL old, unless the mutating operation invalidated
// the entry first (which every grant/revoke path does).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nivaas/property-system/internal/core/ports"
)

// DefaultTTL bounds the staleness window of a cached permission set.
const DefaultTTL = 5 * time.Minute

type entry struct {
	permissions []string
	storedAt    time.Time
}

// PermissionCache is an in-memory ports.PermissionCache. Construct one per
// process and inject it; there is no package-level singleton.
type PermissionCache struct {
	mu          sync.RWMutex
	users       map[string]entry
	roles       map[string]entry
	lastUpdated *time.Time
	ttl         time.Duration
	now         func() time.Time
}

// New creates a PermissionCache with the given TTL. A non-positive TTL falls
// back to DefaultTTL.
func New(ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PermissionCache{
		users: make(map[string]entry),
		roles: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// GetUserPermissions returns the cached set for userID when fresh, otherwise
// invokes resolve and stores its result. Resolver errors propagate uncached.
// Concurrent misses for the same key may both invoke the resolver.
func (c *PermissionCache) GetUserPermissions(ctx context.Context, userID string, resolve ports.PermissionResolverFunc) ([]string, error) {
	return c.getOrCompute(ctx, c.users, userID, resolve)
}

// GetRolePermissions is GetUserPermissions keyed by role.
func (c *PermissionCache) GetRolePermissions(ctx context.Context, roleID string, resolve ports.PermissionResolverFunc) ([]string, error) {
	return c.getOrCompute(ctx, c.roles, roleID, resolve)
}

func (c *PermissionCache) getOrCompute(ctx context.Context, m map[string]entry, key string, resolve ports.PermissionResolverFunc) ([]string, error) {
	c.mu.RLock()
	e, ok := m[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		return e.permissions, nil
	}

	permissions, err := resolve(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.now()
	c.mu.Lock()
	m[key] = entry{permissions: permissions, storedAt: ts}
	c.lastUpdated = &ts
	c.mu.Unlock()

	return permissions, nil
}

// InvalidateUser removes the entry for userID; the next read recomputes.
func (c *PermissionCache) InvalidateUser(_ context.Context, userID string) {
	c.mu.Lock()
	delete(c.users, userID)
	c.mu.Unlock()
}

// InvalidateRole removes the entry for roleID; the next read recomputes.
func (c *PermissionCache) InvalidateRole(_ context.Context, roleID string) {
	c.mu.Lock()
	delete(c.roles, roleID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (c *PermissionCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	c.users = make(map[string]entry)
	c.roles = make(map[string]entry)
	c.lastUpdated = nil
	c.mu.Unlock()
}

// Stats returns entry counts and the timestamp of the last store. For
// observability only.
func (c *PermissionCache) Stats(_ context.Context) ports.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ports.CacheStats{
		CachedUsers: len(c.users),
		CachedRoles: len(c.roles),
		LastUpdated: c.lastUpdated,
	}
}
