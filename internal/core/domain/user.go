package domain

import "time"

// UserStatus represents the lifecycle state of an account. Users are never
// hard-deleted; status transitions model removal.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

// User models an identity in the system. The parent reference points at the
// account that created (and therefore manages) this one.
type User struct {
	ID                 string         `json:"id"`
	UUID               string         `json:"uuid"`
	Email              string         `json:"email"`
	PasswordHash       string         `json:"-"`
	GoogleID           string         `json:"google_id,omitempty"`
	Name               string         `json:"name,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	RoleID             string         `json:"role_id"`
	Role               *Role          `json:"role,omitempty"`
	ParentID           string         `json:"parent_id,omitempty"`
	Status             UserStatus     `json:"status"`
	NeedsPasswordSetup bool           `json:"needs_password_setup"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	LastLoginAt        *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with a password.
// Federated-only accounts (Google sign-in) have no hash until one is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// RoleSlug returns the slug of the user's role, or "" when the role relation
// was not loaded.
func (u *User) RoleSlug() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Slug
}
