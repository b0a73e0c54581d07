package service

import (
	"context"

	"github.com/nivaas/property-system/internal/core/domain"
)

// Requirement expresses a declarative access check: a set of acceptable role
// slugs, a set of required permission keys, or both. Permission keys are
// conjunctive — every listed key must be held.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Denial reason kinds, surfaced to clients so UIs can render "why".
const (
	DenialWrongRole         = "wrong_role"
	DenialMissingPermission = "missing_permission"
)

// Denial is the structured, client-facing reason for a deny verdict.
type Denial struct {
	Reason              string   `json:"reason"`
	UserRole            string   `json:"user_role,omitempty"`
	RequiredRoles       []string `json:"required_roles,omitempty"`
	RequiredPermissions []string `json:"required_permissions,omitempty"`
	MissingPermissions  []string `json:"missing_permissions,omitempty"`
}

// Decision is an access verdict. Denial is nil iff Allowed.
type Decision struct {
	Allowed bool    `json:"allowed"`
	Denial  *Denial `json:"denial,omitempty"`
}

// PermissionChecker is the slice of the permission resolver the decision
// point needs.
type PermissionChecker interface {
	Resolve(ctx context.Context, userID string) ([]string, error)
}

// AccessDecider is the single place request-time authorization is decided.
type AccessDecider struct {
	resolver PermissionChecker
}

func NewAccessDecider(resolver PermissionChecker) *AccessDecider {
	return &AccessDecider{resolver: resolver}
}

// Decide evaluates the requirement for the identity. Always-allow roles pass
// unconditionally, skipping permission resolution entirely. Denials have no
// side effects.
func (d *AccessDecider) Decide(ctx context.Context, userID, roleSlug string, req Requirement) (Decision, error) {
	if domain.AlwaysAllowRole(roleSlug) {
		return Decision{Allowed: true}, nil
	}

	if len(req.Roles) > 0 && !contains(req.Roles, roleSlug) {
		return Decision{Denial: &Denial{
			Reason:        DenialWrongRole,
			UserRole:      roleSlug,
			RequiredRoles: req.Roles,
		}}, nil
	}

	if len(req.Permissions) > 0 {
		held, err := d.resolver.Resolve(ctx, userID)
		if err != nil {
			return Decision{}, err
		}
		var missing []string
		for _, key := range req.Permissions {
			if !contains(held, key) {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return Decision{Denial: &Denial{
				Reason:              DenialMissingPermission,
				UserRole:            roleSlug,
				RequiredPermissions: req.Permissions,
				MissingPermissions:  missing,
			}}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
