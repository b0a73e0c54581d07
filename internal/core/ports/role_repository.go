package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// RoleRepository defines the persistence interface for roles.
type RoleRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Role, error)
	Upsert(ctx context.Context, role *domain.Role) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
}

// RoleLimitRepository defines the persistence interface for per-role quotas
// and impersonation allow-lists.
type RoleLimitRepository interface {
	FindBySlug(ctx context.Context, roleSlug string) (*domain.RoleLimit, error)
	Upsert(ctx context.Context, limit *domain.RoleLimit) (*domain.RoleLimit, error)
}
