package ports

import (
	"context"
	"time"

	"github.com/nivaas/property-system/internal/core/domain"
)

// GenerateTokenInput carries the parameters for issuing a registration token.
type GenerateTokenInput struct {
	Email          string
	RoleSlug       string
	ExpiresInHours int
	Metadata       map[string]any
}

// GeneratedToken is the result of issuing a registration token.
type GeneratedToken struct {
	Token            string    `json:"token"`
	RoleSlug         string    `json:"role_slug"`
	Email            string    `json:"email,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	RegistrationLink string    `json:"registration_link"`
}

// TokenService issues, validates, lists, and revokes registration tokens.
// Consumption (marking used) is performed by the registration flow at the
// point of actual account creation, never by validation.
type TokenService interface {
	Generate(ctx context.Context, issuerID string, input GenerateTokenInput) (*GeneratedToken, error)
	// Validate checks the token without mutating it. When email is non-empty
	// and the token is bound to an email, the two must match.
	Validate(ctx context.Context, token, email string) (*domain.RegistrationToken, error)
	Revoke(ctx context.Context, tokenID, issuerID string) error
	List(ctx context.Context, issuerID string, filter TokenFilter) ([]*domain.RegistrationToken, error)
}
