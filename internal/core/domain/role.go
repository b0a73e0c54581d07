package domain

import "time"

// Role slugs of the fixed seed set. Rank ordering (higher = more authority)
// is the sole basis for hierarchy-creation and token-issuance checks.
const (
	RoleDeveloper  = "developer"
	RoleWebOwner   = "web_owner"
	RoleStaff      = "staff"
	RoleHouseOwner = "house_owner"
	RoleCaretaker  = "caretaker"
)

// AlwaysAllowRole reports whether holders of the given role slug bypass
// permission checks entirely at the access-decision layer. Their effective
// permission set as reported by the resolver understates their actual access.
func AlwaysAllowRole(slug string) bool {
	return slug == RoleWebOwner || slug == RoleDeveloper
}

// Role is a named authorization tier.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Rank        int       `json:"rank"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleLimit carries per-role quota configuration and the list of role slugs
// members of this role may impersonate.
type RoleLimit struct {
	RoleSlug      string   `json:"role_slug"`
	MaxHouses     int      `json:"max_houses"`
	MaxCaretakers int      `json:"max_caretakers"`
	MaxFlats      int      `json:"max_flats"`
	CanLoginAs    []string `json:"can_login_as"`
}

// AllowsLoginAs reports whether this limit permits impersonating the role.
func (l *RoleLimit) AllowsLoginAs(slug string) bool {
	for _, s := range l.CanLoginAs {
		if s == slug {
			return true
		}
	}
	return false
}
