package ports

import (
	"context"
	"time"

	"github.com/nivaas/property-system/internal/core/domain"
)

// TokenFilter narrows registration token listings.
type TokenFilter struct {
	Used     *bool
	RoleSlug string
	Email    string
}

// RegistrationTokenRepository defines the persistence interface for
// registration tokens.
type RegistrationTokenRepository interface {
	Create(ctx context.Context, token *domain.RegistrationToken) (*domain.RegistrationToken, error)
	FindByToken(ctx context.Context, token string) (*domain.RegistrationToken, error)
	FindByID(ctx context.Context, id string) (*domain.RegistrationToken, error)
	// MarkUsed is the single consuming write: used, usedAt, usedBy.
	MarkUsed(ctx context.Context, id, usedBy string, usedAt time.Time) error
	// MarkUnused compensates a consumption whose downstream user creation failed.
	MarkUnused(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, creatorID string, filter TokenFilter) ([]*domain.RegistrationToken, error)
}
