// Package bootstrap converges the database to the baseline the system needs
// at startup: the fixed role set, the permission catalog, per-role quotas,
// role permission assignments, and optionally an administrator account. Every
// write is an upsert, so reruns are safe.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

// adminUUID is the fixed identity of the seeded administrator so reruns
// update rather than duplicate it.
const adminUUID = "00000000-0000-0000-0000-000000000001"

var seedRoles = []domain.Role{
	{Name: "DEVELOPER", Slug: domain.RoleDeveloper, Rank: 999, Description: "System-level access"},
	{Name: "WEB_OWNER", Slug: domain.RoleWebOwner, Rank: 100, Description: "Full system access and settings"},
	{Name: "STAFF", Slug: domain.RoleStaff, Rank: 80, Description: "Administrative staff with limited permissions"},
	{Name: "HOUSE_OWNER", Slug: domain.RoleHouseOwner, Rank: 60, Description: "Owner of one or more houses"},
	{Name: "CARETAKER", Slug: domain.RoleCaretaker, Rank: 40, Description: "Caretaker for assigned houses"},
}

var seedRoleLimits = []domain.RoleLimit{
	{RoleSlug: domain.RoleWebOwner, MaxHouses: 999, MaxCaretakers: 999, MaxFlats: 9999, CanLoginAs: []string{domain.RoleStaff, domain.RoleHouseOwner, domain.RoleCaretaker}},
	{RoleSlug: domain.RoleStaff, MaxHouses: 50, MaxCaretakers: 20, MaxFlats: 500, CanLoginAs: []string{domain.RoleHouseOwner, domain.RoleCaretaker}},
	{RoleSlug: domain.RoleHouseOwner, MaxHouses: 5, MaxCaretakers: 5, MaxFlats: 50, CanLoginAs: []string{domain.RoleCaretaker}},
	{RoleSlug: domain.RoleCaretaker, MaxHouses: 0, MaxCaretakers: 0, MaxFlats: 0},
}

var seedPermissions = []domain.Permission{
	{Key: "users.create", Description: "Create new users"},
	{Key: "users.view", Description: "View user list and details"},
	{Key: "users.edit", Description: "Edit user information"},
	{Key: "users.delete", Description: "Delete users"},
	{Key: "users.manage_permissions", Description: "Manage user permissions"},
	{Key: "users.impersonate", Description: "Login as other users"},

	{Key: "houses.create", Description: "Create new houses"},
	{Key: "houses.view", Description: "View house list"},
	{Key: "houses.view.own", Description: "View own houses only"},
	{Key: "houses.edit", Description: "Edit any house"},
	{Key: "houses.edit.own", Description: "Edit own houses only"},
	{Key: "houses.delete", Description: "Delete houses"},

	{Key: "flats.create", Description: "Create new flats"},
	{Key: "flats.view", Description: "View flat list"},
	{Key: "flats.edit", Description: "Edit flats"},
	{Key: "flats.delete", Description: "Delete flats"},
	{Key: "flats.assign", Description: "Assign flats to renters"},

	{Key: "renters.create", Description: "Create new renters"},
	{Key: "renters.view", Description: "View renter list"},
	{Key: "renters.edit", Description: "Edit renter information"},
	{Key: "renters.delete", Description: "Delete renters"},

	{Key: "caretakers.create", Description: "Create new caretakers"},
	{Key: "caretakers.view", Description: "View caretaker list"},
	{Key: "caretakers.assign", Description: "Assign caretakers to houses"},
	{Key: "caretakers.remove", Description: "Remove caretakers from houses"},

	{Key: "notices.create", Description: "Create new notices"},
	{Key: "notices.create.own", Description: "Create notices for own houses"},
	{Key: "notices.view", Description: "View notices"},
	{Key: "notices.edit", Description: "Edit notices"},
	{Key: "notices.delete", Description: "Delete notices"},
	{Key: "notices.publish", Description: "Publish notices"},

	{Key: "payments.create", Description: "Create payment records"},
	{Key: "payments.view", Description: "View payment records"},
	{Key: "payments.verify", Description: "Verify payments"},
	{Key: "payments.delete", Description: "Delete payment records"},
	{Key: "invoices.generate", Description: "Generate invoices"},

	{Key: "maintenance.create", Description: "Create maintenance requests"},
	{Key: "maintenance.view", Description: "View maintenance requests"},
	{Key: "maintenance.view.assigned", Description: "View assigned maintenance requests"},
	{Key: "maintenance.edit", Description: "Edit maintenance requests"},
	{Key: "maintenance.resolve", Description: "Resolve maintenance requests"},

	{Key: "reports.view", Description: "View reports"},
	{Key: "reports.generate", Description: "Generate reports"},
	{Key: "reports.export", Description: "Export reports"},
	{Key: "analytics.view", Description: "View analytics dashboard"},

	{Key: "system.settings.view", Description: "View system settings"},
	{Key: "system.settings.edit", Description: "Edit system settings"},
	{Key: "system.roles.manage", Description: "Manage roles and permissions"},
	{Key: "system.logs.view", Description: "View system logs"},
	{Key: "system.backup", Description: "Create system backups"},

	{Key: "templates.create", Description: "Create templates"},
	{Key: "templates.view", Description: "View templates"},
	{Key: "templates.edit", Description: "Edit templates"},
	{Key: "templates.delete", Description: "Delete templates"},

	{Key: "notifications.send", Description: "Send notifications"},
	{Key: "notifications.broadcast", Description: "Send broadcast notifications"},
	{Key: "notifications.templates.manage", Description: "Manage notification templates"},
}

// houseOwnerPermissionKeys are the base grants of the house_owner role.
var houseOwnerPermissionKeys = []string{
	"houses.create", "houses.view.own", "houses.edit.own",
	"flats.create", "flats.view", "flats.edit", "flats.assign",
	"renters.create", "renters.view", "renters.edit", "renters.delete",
	"caretakers.create", "caretakers.view", "caretakers.assign", "caretakers.remove",
	"notices.create.own", "notices.view",
	"payments.create", "payments.view",
	"maintenance.create", "maintenance.view",
	"invoices.generate",
}

// caretakerPermissionKeys are the base grants of the caretaker role.
var caretakerPermissionKeys = []string{
	"maintenance.create",
	"maintenance.view.assigned",
	"maintenance.resolve",
	"notices.view",
}

// AdminAccount configures the seeded administrator. Zero value skips it.
type AdminAccount struct {
	Email    string
	Password string
}

// Seeder converges the database to the startup baseline.
type Seeder struct {
	users      ports.UserRepository
	roles      ports.RoleRepository
	roleLimits ports.RoleLimitRepository
	catalog    ports.PermissionRepository
	rolePerms  ports.RolePermissionRepository
	log        zerolog.Logger
}

func NewSeeder(
	users ports.UserRepository,
	roles ports.RoleRepository,
	roleLimits ports.RoleLimitRepository,
	catalog ports.PermissionRepository,
	rolePerms ports.RolePermissionRepository,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{
		users:      users,
		roles:      roles,
		roleLimits: roleLimits,
		catalog:    catalog,
		rolePerms:  rolePerms,
		log:        log,
	}
}

// Run seeds roles, the permission catalog, role limits, base role
// assignments, and the admin account.
func (s *Seeder) Run(ctx context.Context, admin AdminAccount) error {
	rolesBySlug, err := s.seedRoles(ctx)
	if err != nil {
		return err
	}
	permsByKey, err := s.seedPermissions(ctx)
	if err != nil {
		return err
	}
	if err := s.seedRoleLimits(ctx); err != nil {
		return err
	}
	if err := s.seedRolePermissions(ctx, rolesBySlug, permsByKey); err != nil {
		return err
	}
	if admin.Email != "" && admin.Password != "" {
		if err := s.seedAdmin(ctx, admin, rolesBySlug[domain.RoleWebOwner]); err != nil {
			return err
		}
	}

	s.log.Info().Msg("bootstrap seeding completed")
	return nil
}

func (s *Seeder) seedRoles(ctx context.Context) (map[string]*domain.Role, error) {
	out := make(map[string]*domain.Role, len(seedRoles))
	for i := range seedRoles {
		role, err := s.roles.Upsert(ctx, &seedRoles[i])
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", seedRoles[i].Slug, err)
		}
		out[role.Slug] = role
	}
	return out, nil
}

func (s *Seeder) seedPermissions(ctx context.Context) (map[string]*domain.Permission, error) {
	out := make(map[string]*domain.Permission, len(seedPermissions))
	for i := range seedPermissions {
		perm, err := s.catalog.Upsert(ctx, &seedPermissions[i])
		if err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", seedPermissions[i].Key, err)
		}
		out[perm.Key] = perm
	}
	return out, nil
}

func (s *Seeder) seedRoleLimits(ctx context.Context) error {
	for i := range seedRoleLimits {
		if _, err := s.roleLimits.Upsert(ctx, &seedRoleLimits[i]); err != nil {
			return fmt.Errorf("seed role limit %s: %w", seedRoleLimits[i].RoleSlug, err)
		}
	}
	return nil
}

// seedRolePermissions assigns base grants: web_owner holds the full catalog,
// house_owner and caretaker hold their subsets, staff holds none (staff
// access is granted per user).
func (s *Seeder) seedRolePermissions(ctx context.Context, roles map[string]*domain.Role, perms map[string]*domain.Permission) error {
	assign := func(roleSlug string, keys []string) error {
		role := roles[roleSlug]
		if role == nil {
			return fmt.Errorf("seed role permissions: role %s missing", roleSlug)
		}
		for _, key := range keys {
			perm := perms[key]
			if perm == nil {
				continue
			}
			err := s.rolePerms.Assign(ctx, &domain.RolePermission{
				RoleID:        role.ID,
				PermissionID:  perm.ID,
				PermissionKey: perm.Key,
			})
			if err != nil {
				return fmt.Errorf("assign %s to %s: %w", key, roleSlug, err)
			}
		}
		return nil
	}

	allKeys := make([]string, 0, len(seedPermissions))
	for i := range seedPermissions {
		allKeys = append(allKeys, seedPermissions[i].Key)
	}

	if err := assign(domain.RoleWebOwner, allKeys); err != nil {
		return err
	}
	if err := assign(domain.RoleHouseOwner, houseOwnerPermissionKeys); err != nil {
		return err
	}
	return assign(domain.RoleCaretaker, caretakerPermissionKeys)
}

func (s *Seeder) seedAdmin(ctx context.Context, admin AdminAccount, role *domain.Role) error {
	if role == nil {
		return errors.New("seed admin: web_owner role missing")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	now := time.Now().UTC()
	existing, err := s.users.FindByEmail(ctx, admin.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}
	if existing != nil {
		existing.PasswordHash = string(hash)
		existing.RoleID = role.ID
		existing.UpdatedAt = now
		if _, err := s.users.Update(ctx, existing); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		return nil
	}

	_, err = s.users.Create(ctx, &domain.User{
		UUID:         adminUUID,
		Email:        admin.Email,
		PasswordHash: string(hash),
		Name:         "Web Owner",
		RoleID:       role.ID,
		Status:       domain.StatusActive,
		Metadata: map[string]any{
			"is_system_admin": true,
			"created_by":      "system",
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	s.log.Info().Str("email", admin.Email).Msg("administrator account seeded")
	return nil
}
