package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// BatchItemOutcome reports one item's result of a bulk permission operation.
// Batches have no all-or-nothing semantics: each item succeeds or fails on
// its own.
type BatchItemOutcome struct {
	PermissionID string `json:"permission_id"`
	Key          string `json:"key,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StaffPermissions pairs a staff user with their active individual grants.
type StaffPermissions struct {
	User   *domain.User              `json:"user"`
	Grants []*domain.StaffPermission `json:"grants"`
}

// PermissionService resolves effective permission sets and administers
// individual grants for staff users.
type PermissionService interface {
	// Resolve returns the user's effective permission keys: the union of the
	// role's permissions and the user's active individual grants.
	Resolve(ctx context.Context, userID string) ([]string, error)
	ResolveRole(ctx context.Context, roleID string) ([]string, error)
	HasPermission(ctx context.Context, userID, key string) (bool, error)
	// WarmUp pre-resolves the permission sets of all active users, priming
	// the cache. Returns the number of users warmed.
	WarmUp(ctx context.Context) (int, error)

	Grant(ctx context.Context, userID, permissionID, grantedBy string) (*domain.StaffPermission, error)
	Revoke(ctx context.Context, userID, permissionID, revokedBy string) (*domain.StaffPermission, error)
	BulkGrant(ctx context.Context, userID string, permissionIDs []string, grantedBy string) ([]BatchItemOutcome, []BatchItemOutcome)
	BulkRevoke(ctx context.Context, userID string, permissionIDs []string, revokedBy string) ([]BatchItemOutcome, []BatchItemOutcome)
	CopyPermissions(ctx context.Context, sourceUserID, targetUserID, grantedBy string) ([]BatchItemOutcome, []BatchItemOutcome, error)

	History(ctx context.Context, userID string) ([]*domain.StaffPermission, error)
	StaffWithPermissions(ctx context.Context) ([]StaffPermissions, error)
	Catalog(ctx context.Context) ([]*domain.Permission, error)
}
