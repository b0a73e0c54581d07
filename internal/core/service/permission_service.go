package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

// PermissionService computes effective permission sets and administers
// per-user grants. Every mutation invalidates the affected cache entry before
// returning.
type PermissionService struct {
	users      ports.UserRepository
	catalog    ports.PermissionRepository
	rolePerms  ports.RolePermissionRepository
	staffPerms ports.StaffPermissionRepository
	cache      ports.PermissionCache
	log        zerolog.Logger
}

func NewPermissionService(
	users ports.UserRepository,
	catalog ports.PermissionRepository,
	rolePerms ports.RolePermissionRepository,
	staffPerms ports.StaffPermissionRepository,
	cache ports.PermissionCache,
	log zerolog.Logger,
) *PermissionService {
	return &PermissionService{
		users:      users,
		catalog:    catalog,
		rolePerms:  rolePerms,
		staffPerms: staffPerms,
		cache:      cache,
		log:        log,
	}
}

// Resolve returns the user's effective permission keys: role permissions
// united with currently-active individual grants, deduplicated. An unknown
// user resolves to the empty set.
func (s *PermissionService) Resolve(ctx context.Context, userID string) ([]string, error) {
	return s.cache.GetUserPermissions(ctx, userID, func(ctx context.Context) ([]string, error) {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return []string{}, nil
			}
			return nil, err
		}

		roleKeys, err := s.rolePerms.KeysForRole(ctx, user.RoleID)
		if err != nil {
			return nil, err
		}
		grants, err := s.staffPerms.ActiveForUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{}, len(roleKeys)+len(grants))
		keys := make([]string, 0, len(roleKeys)+len(grants))
		for _, k := range roleKeys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		for _, g := range grants {
			if _, dup := seen[g.PermissionKey]; !dup {
				seen[g.PermissionKey] = struct{}{}
				keys = append(keys, g.PermissionKey)
			}
		}
		return keys, nil
	})
}

// ResolveRole returns the permission keys assigned to a role.
func (s *PermissionService) ResolveRole(ctx context.Context, roleID string) ([]string, error) {
	return s.cache.GetRolePermissions(ctx, roleID, func(ctx context.Context) ([]string, error) {
		return s.rolePerms.KeysForRole(ctx, roleID)
	})
}

// HasPermission reports whether key is in the user's effective set. Callers
// at the access-decision layer bypass this entirely for always-allow roles.
func (s *PermissionService) HasPermission(ctx context.Context, userID, key string) (bool, error) {
	keys, err := s.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// WarmUp resolves every active user's permission set so subsequent requests
// hit the cache. Inactive accounts are skipped; they cannot authenticate.
func (s *PermissionService) WarmUp(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx, ports.UserFilter{})
	if err != nil {
		return 0, err
	}

	warmed := 0
	for _, user := range users {
		if user.Status != domain.StatusActive {
			continue
		}
		if _, err := s.Resolve(ctx, user.ID); err != nil {
			return warmed, fmt.Errorf("warm up user %s: %w", user.ID, err)
		}
		warmed++
	}

	s.log.Info().Int("users", warmed).Msg("permission cache warmed up")
	return warmed, nil
}

// Grant creates an individual permission grant for a staff user. Individual
// grants are modeled only for the staff role; other roles receive permissions
// solely through role assignment.
func (s *PermissionService) Grant(ctx context.Context, userID, permissionID, grantedBy string) (*domain.StaffPermission, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.RoleSlug() != domain.RoleStaff {
		return nil, domain.ErrNotStaffMember
	}

	perm, err := s.catalog.FindByID(ctx, permissionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.staffPerms.FindActive(ctx, userID, permissionID)
	if err != nil && !errors.Is(err, domain.ErrGrantNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyGranted
	}

	grant, err := s.staffPerms.Create(ctx, &domain.StaffPermission{
		UserID:        userID,
		PermissionID:  perm.ID,
		PermissionKey: perm.Key,
		GrantedBy:     grantedBy,
		GrantedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(ctx, userID)
	s.log.Info().
		Str("user_id", userID).
		Str("permission", perm.Key).
		Str("granted_by", grantedBy).
		Msg("permission granted")
	return grant, nil
}

// Revoke stamps revocation metadata on the active grant for (user,
// permission). The row is retained as history.
func (s *PermissionService) Revoke(ctx context.Context, userID, permissionID, revokedBy string) (*domain.StaffPermission, error) {
	grant, err := s.staffPerms.FindActive(ctx, userID, permissionID)
	if err != nil {
		return nil, err
	}

	revoked, err := s.staffPerms.Revoke(ctx, grant.ID, revokedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(ctx, userID)
	s.log.Info().
		Str("user_id", userID).
		Str("permission", revoked.PermissionKey).
		Str("revoked_by", revokedBy).
		Msg("permission revoked")
	return revoked, nil
}

// BulkGrant applies Grant per permission id. Each item's outcome is reported
// independently; there is no all-or-nothing transaction.
func (s *PermissionService) BulkGrant(ctx context.Context, userID string, permissionIDs []string, grantedBy string) (granted, failed []ports.BatchItemOutcome) {
	for _, id := range permissionIDs {
		grant, err := s.Grant(ctx, userID, id, grantedBy)
		if err != nil {
			failed = append(failed, ports.BatchItemOutcome{PermissionID: id, Error: err.Error()})
			continue
		}
		granted = append(granted, ports.BatchItemOutcome{PermissionID: id, Key: grant.PermissionKey})
	}
	return granted, failed
}

// BulkRevoke applies Revoke per permission id with per-item outcomes.
func (s *PermissionService) BulkRevoke(ctx context.Context, userID string, permissionIDs []string, revokedBy string) (revoked, failed []ports.BatchItemOutcome) {
	for _, id := range permissionIDs {
		grant, err := s.Revoke(ctx, userID, id, revokedBy)
		if err != nil {
			failed = append(failed, ports.BatchItemOutcome{PermissionID: id, Error: err.Error()})
			continue
		}
		revoked = append(revoked, ports.BatchItemOutcome{PermissionID: id, Key: grant.PermissionKey})
	}
	return revoked, failed
}

// CopyPermissions grants every active permission of the source staff user to
// the target, item by item.
func (s *PermissionService) CopyPermissions(ctx context.Context, sourceUserID, targetUserID, grantedBy string) (copied, failed []ports.BatchItemOutcome, err error) {
	if sourceUserID == targetUserID {
		return nil, nil, fmt.Errorf("%w: source and target must differ", domain.ErrValidation)
	}

	source, err := s.staffPerms.ActiveForUser(ctx, sourceUserID)
	if err != nil {
		return nil, nil, err
	}
	if len(source) == 0 {
		return nil, nil, fmt.Errorf("%w: source has no active permissions to copy", domain.ErrValidation)
	}

	for _, grant := range source {
		if _, gerr := s.Grant(ctx, targetUserID, grant.PermissionID, grantedBy); gerr != nil {
			failed = append(failed, ports.BatchItemOutcome{PermissionID: grant.PermissionID, Key: grant.PermissionKey, Error: gerr.Error()})
			continue
		}
		copied = append(copied, ports.BatchItemOutcome{PermissionID: grant.PermissionID, Key: grant.PermissionKey})
	}
	return copied, failed, nil
}

// History returns every grant row for the user, revoked rows included.
func (s *PermissionService) History(ctx context.Context, userID string) ([]*domain.StaffPermission, error) {
	return s.staffPerms.HistoryForUser(ctx, userID)
}

// StaffWithPermissions lists every staff user with their active grants.
func (s *PermissionService) StaffWithPermissions(ctx context.Context) ([]ports.StaffPermissions, error) {
	staff, err := s.users.List(ctx, ports.UserFilter{RoleSlug: domain.RoleStaff})
	if err != nil {
		return nil, err
	}

	out := make([]ports.StaffPermissions, 0, len(staff))
	for _, user := range staff {
		grants, err := s.staffPerms.ActiveForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ports.StaffPermissions{User: user, Grants: grants})
	}
	return out, nil
}

// Catalog returns every permission defined in the system.
func (s *PermissionService) Catalog(ctx context.Context) ([]*domain.Permission, error) {
	return s.catalog.List(ctx)
}
