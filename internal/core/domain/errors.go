package domain

import "errors"

// Entity lookup failures.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrGrantNotFound      = errors.New("active permission grant not found")
	ErrSessionNotFound    = errors.New("login-as session not found")
)

// Idempotency violations caught before write.
var (
	ErrUserExists     = errors.New("user already exists")
	ErrAlreadyGranted = errors.New("permission already granted")
)

// Registration token state.
var (
	ErrTokenInvalid  = errors.New("invalid registration token")
	ErrTokenUsed     = errors.New("registration token already used")
	ErrTokenExpired  = errors.New("registration token expired")
	ErrTokenNotOwner = errors.New("registration token belongs to another issuer")
)

// Authorization denials with distinct causes.
var (
	ErrInsufficientRank = errors.New("insufficient role rank")
	ErrOutOfHierarchy   = errors.New("target is outside your management hierarchy")
	ErrRoleNotAllowed   = errors.New("target role is not in your login-as allow-list")
	ErrNotPermitted     = errors.New("login-as is not permitted for your role")
	ErrNotStaffMember   = errors.New("user is not a staff member")
	ErrNotSessionOwner  = errors.New("only the session owner may exit a login-as session")
)

// Authentication and input failures.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountInactive      = errors.New("account is not active")
	ErrRegistrationDisabled = errors.New("public registration is disabled; a registration token is required")
	ErrValidation           = errors.New("validation failed")
)
