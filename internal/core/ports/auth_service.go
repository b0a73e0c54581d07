package ports

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// TokenPair is a freshly minted access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput carries self-service registration data.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	// Token is an optional registration token gating the account's role and
	// linking the new user under the token issuer.
	Token string
}

// AuthResult is returned by authentication-producing operations.
type AuthResult struct {
	User        *domain.User `json:"user"`
	Tokens      TokenPair    `json:"tokens"`
	Permissions []string     `json:"permissions"`
	// TokenConsumed reports whether this operation consumed a registration
	// token. False when no token was supplied or the account was completed
	// in place (federated upgrade).
	TokenConsumed bool `json:"-"`
}

// CreateUserInput carries administrative account-creation data.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	RoleSlug string
	// HouseLimit, when non-nil, upserts the role limit for the target role.
	HouseLimit *int
	// GenerateToken additionally issues a week-long onboarding token bound to
	// the new account's email.
	GenerateToken bool
	Metadata      map[string]any
}

// CreatedUser is the result of an administrative account creation.
type CreatedUser struct {
	User *domain.User `json:"user"`
	// Password is the generated plaintext password, present only when the
	// caller did not supply one.
	Password          string          `json:"password,omitempty"`
	RegistrationToken *GeneratedToken `json:"registration_token,omitempty"`
}

// LoginAsResult is returned when an impersonation session starts or ends.
type LoginAsResult struct {
	User    *domain.User           `json:"user"`
	Tokens  TokenPair              `json:"tokens"`
	Session *domain.LoginAsSession `json:"session,omitempty"`
}

// UserLimitsUpdate mutates a user's quota metadata.
type UserLimitsUpdate struct {
	HouseLimit  *int
	Permissions []string
}

// AuthService implements registration, login, administrative account
// creation, and the login-as impersonation lifecycle.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	SetPassword(ctx context.Context, userID, password string) (*domain.User, error)

	CreateUserAccount(ctx context.Context, creatorID string, input CreateUserInput) (*CreatedUser, error)
	UpdateUserLimits(ctx context.Context, userID string, update UserLimitsUpdate) (*domain.User, error)

	LoginAs(ctx context.Context, actorID, targetID, reason string) (*LoginAsResult, error)
	ExitLoginAs(ctx context.Context, sessionID, requesterID string) (*LoginAsResult, error)
}
