package ports

import (
	"context"
	"time"
)

// PermissionResolverFunc computes a permission key set on a cache miss.
type PermissionResolverFunc func(ctx context.Context) ([]string, error)

// CacheStats is an observability snapshot of a permission cache. It carries
// no correctness contract.
type CacheStats struct {
	CachedUsers int        `json:"cached_users"`
	CachedRoles int        `json:"cached_roles"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// PermissionCache memoizes resolved permission sets keyed by user or role
// identity, bounded by a staleness TTL. The cache never originates data;
// resolver failures propagate uncached. Mutating operations must call the
// matching Invalidate before returning success to their caller.
type PermissionCache interface {
	GetUserPermissions(ctx context.Context, userID string, resolve PermissionResolverFunc) ([]string, error)
	GetRolePermissions(ctx context.Context, roleID string, resolve PermissionResolverFunc) ([]string, error)
	InvalidateUser(ctx context.Context, userID string)
	InvalidateRole(ctx context.Context, roleID string)
	InvalidateAll(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}
