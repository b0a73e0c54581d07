package ports

import (
	"context"
	"time"

	"github.com/nivaas/property-system/internal/core/domain"
)

// PermissionRepository defines the persistence interface for the permission
// catalog.
type PermissionRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Permission, error)
	FindByKey(ctx context.Context, key string) (*domain.Permission, error)
	Upsert(ctx context.Context, perm *domain.Permission) (*domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
}

// RolePermissionRepository defines the persistence interface for role-level
// permission assignments.
type RolePermissionRepository interface {
	KeysForRole(ctx context.Context, roleID string) ([]string, error)
	Assign(ctx context.Context, assoc *domain.RolePermission) error
	Remove(ctx context.Context, roleID, permissionID string) error
}

// StaffPermissionRepository defines the persistence interface for individual
// permission grants. Revocation stamps rows; it never deletes them.
type StaffPermissionRepository interface {
	Create(ctx context.Context, grant *domain.StaffPermission) (*domain.StaffPermission, error)
	FindActive(ctx context.Context, userID, permissionID string) (*domain.StaffPermission, error)
	ActiveForUser(ctx context.Context, userID string) ([]*domain.StaffPermission, error)
	HistoryForUser(ctx context.Context, userID string) ([]*domain.StaffPermission, error)
	Revoke(ctx context.Context, grantID, revokedBy string, revokedAt time.Time) (*domain.StaffPermission, error)
}
