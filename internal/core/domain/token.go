package domain

import "time"

// RegistrationToken is a single-use, expiring credential that authorizes
// creation of exactly one new account under a specific role.
//
// State machine: Created → Used (terminal) or Created → Revoked (terminal,
// row deleted). A token cannot be consumed twice, cannot be consumed after
// expiry, and cannot be revoked once used.
type RegistrationToken struct {
	ID        string         `json:"id"`
	Token     string         `json:"token"`
	Email     string         `json:"email,omitempty"`
	RoleSlug  string         `json:"role_slug"`
	CreatedBy string         `json:"created_by"`
	ExpiresAt time.Time      `json:"expires_at"`
	Used      bool           `json:"used"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
	UsedBy    string         `json:"used_by,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *RegistrationToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
