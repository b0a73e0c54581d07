package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	RoleSlug string
}

// UserRepository defines the persistence interface for user identities.
// Find operations return users with the role relation populated.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, error)
}
