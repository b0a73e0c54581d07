package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// LoginAsSessionRepository defines the persistence interface for
// impersonation sessions.
type LoginAsSessionRepository interface {
	Create(ctx context.Context, session *domain.LoginAsSession) (*domain.LoginAsSession, error)
	FindByID(ctx context.Context, id string) (*domain.LoginAsSession, error)
	Delete(ctx context.Context, id string) error
}
