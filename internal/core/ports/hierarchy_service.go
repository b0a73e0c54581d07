package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// HierarchyService resolves creator/manager relationships between users by
// following parent references. Implementations must bound traversal depth and
// fail closed (treat unexpected structure as "not managed").
type HierarchyService interface {
	IsManaged(ctx context.Context, ancestorID, descendantID string) (bool, error)
	ManagedUsers(ctx context.Context, ancestorID, roleFilter string) ([]*domain.User, error)
}
