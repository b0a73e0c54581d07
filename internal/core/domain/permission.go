package domain

import "time"

// Permission is a unique, dot-namespaced capability key (e.g. "houses.create").
// Immutable once referenced.
type Permission struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission grants a permission to every holder of a role. The key is
// denormalized so resolution does not require a join.
type RolePermission struct {
	ID            string    `json:"id"`
	RoleID        string    `json:"role_id"`
	PermissionID  string    `json:"permission_id"`
	PermissionKey string    `json:"permission_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// StaffPermission is a per-user individual grant. History is retained:
// revocation stamps the row instead of deleting it. At most one active
// (non-revoked) grant may exist per (user, permission) pair.
type StaffPermission struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PermissionID  string     `json:"permission_id"`
	PermissionKey string     `json:"permission_key"`
	GrantedBy     string     `json:"granted_by"`
	GrantedAt     time.Time  `json:"granted_at"`
	RevokedBy     string     `json:"revoked_by,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the grant is currently in force.
func (p *StaffPermission) Active() bool {
	return p.RevokedAt == nil
}
