package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nivaas/property-system/internal/cache"
	"github.com/nivaas/property-system/internal/core/domain"
)

var (
	roleWebOwner   = &domain.Role{ID: "r_web", Name: "WEB_OWNER", Slug: domain.RoleWebOwner, Rank: 100}
	roleStaff      = &domain.Role{ID: "r_staff", Name: "STAFF", Slug: domain.RoleStaff, Rank: 80}
	roleHouseOwner = &domain.Role{ID: "r_house", Name: "HOUSE_OWNER", Slug: domain.RoleHouseOwner, Rank: 60}
	roleCaretaker  = &domain.Role{ID: "r_care", Name: "CARETAKER", Slug: domain.RoleCaretaker, Rank: 40}
)

type permissionFixture struct {
	svc        *PermissionService
	users      *stubUserRepo
	catalog    *stubPermissionRepo
	rolePerms  *stubRolePermRepo
	staffPerms *stubStaffPermRepo
}

func newPermissionFixture() *permissionFixture {
	users := newStubUserRepo()
	catalog := newStubPermissionRepo(
		&domain.Permission{ID: "p1", Key: "houses.create"},
		&domain.Permission{ID: "p2", Key: "reports.view"},
		&domain.Permission{ID: "p3", Key: "notices.publish"},
	)
	rolePerms := newStubRolePermRepo()
	staffPerms := newStubStaffPermRepo()
	svc := NewPermissionService(users, catalog, rolePerms, staffPerms, cache.New(time.Minute), zerolog.Nop())
	return &permissionFixture{svc: svc, users: users, catalog: catalog, rolePerms: rolePerms, staffPerms: staffPerms}
}

func (f *permissionFixture) seedUser(id string, role *domain.Role) *domain.User {
	return f.users.seed(&domain.User{
		ID:     id,
		Email:  id + "@example.com",
		RoleID: role.ID,
		Role:   role,
		Status: domain.StatusActive,
	})
}

func TestPermissionService_Resolve_UnionOfRoleAndGrants(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)
	f.rolePerms.byRole[roleStaff.ID] = []string{"reports.view"}

	if _, err := f.svc.Grant(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	keys, err := f.svc.Resolve(context.Background(), staff.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := map[string]bool{"reports.view": false, "houses.create": false}
	for _, k := range keys {
		if _, ok := want[k]; !ok {
			t.Fatalf("unexpected key %q", k)
		}
		want[k] = true
	}
	for k, seen := range want {
		if !seen {
			t.Fatalf("missing key %q in %v", k, keys)
		}
	}
}

func TestPermissionService_Resolve_UnknownUserIsEmpty(t *testing.T) {
	f := newPermissionFixture()
	keys, err := f.svc.Resolve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty set, got %v", keys)
	}
}

func TestPermissionService_WarmUp(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)
	f.seedUser("staff2", roleStaff)
	f.users.seed(&domain.User{
		ID:     "staff3",
		Email:  "staff3@example.com",
		RoleID: roleStaff.ID,
		Role:   roleStaff,
		Status: domain.StatusInactive,
	})
	f.rolePerms.byRole[roleStaff.ID] = []string{"reports.view"}

	warmed, err := f.svc.WarmUp(context.Background())
	if err != nil {
		t.Fatalf("warm up failed: %v", err)
	}
	if warmed != 2 {
		t.Fatalf("expected 2 active users warmed, got %d", warmed)
	}

	// Warmed entries serve from cache: role changes after warm-up stay
	// invisible until an invalidation.
	f.rolePerms.byRole[roleStaff.ID] = []string{"reports.view", "houses.create"}
	keys, err := f.svc.Resolve(context.Background(), staff.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "reports.view" {
		t.Fatalf("expected cached pre-warm-up set, got %v", keys)
	}
}

func TestPermissionService_HasPermission_Idempotent(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)
	f.rolePerms.byRole[roleStaff.ID] = []string{"reports.view"}

	first, err := f.svc.HasPermission(context.Background(), staff.ID, "reports.view")
	if err != nil {
		t.Fatalf("hasPermission failed: %v", err)
	}
	second, err := f.svc.HasPermission(context.Background(), staff.ID, "reports.view")
	if err != nil {
		t.Fatalf("hasPermission failed: %v", err)
	}
	if !first || first != second {
		t.Fatalf("expected stable true result, got %v then %v", first, second)
	}
}

func TestPermissionService_Grant_NotStaff(t *testing.T) {
	f := newPermissionFixture()
	owner := f.seedUser("owner1", roleHouseOwner)

	if _, err := f.svc.Grant(context.Background(), owner.ID, "p1", "admin1"); !errors.Is(err, domain.ErrNotStaffMember) {
		t.Fatalf("expected ErrNotStaffMember, got %v", err)
	}
}

func TestPermissionService_Grant_DuplicateThenRevokeThenGrant(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)

	if _, err := f.svc.Grant(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	if _, err := f.svc.Grant(context.Background(), staff.ID, "p1", "admin1"); !errors.Is(err, domain.ErrAlreadyGranted) {
		t.Fatalf("expected ErrAlreadyGranted, got %v", err)
	}
	if _, err := f.svc.Revoke(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := f.svc.Grant(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("re-grant after revoke failed: %v", err)
	}
}

func TestPermissionService_GrantRevoke_ReflectedImmediately(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)

	// Warm the cache before the mutation.
	if ok, _ := f.svc.HasPermission(context.Background(), staff.ID, "houses.create"); ok {
		t.Fatalf("permission should not be held yet")
	}

	if _, err := f.svc.Grant(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if ok, _ := f.svc.HasPermission(context.Background(), staff.ID, "houses.create"); !ok {
		t.Fatalf("grant not visible immediately after invalidation")
	}

	if _, err := f.svc.Revoke(context.Background(), staff.ID, "p1", "admin1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if ok, _ := f.svc.HasPermission(context.Background(), staff.ID, "houses.create"); ok {
		t.Fatalf("revocation not visible immediately after invalidation")
	}

	history, err := f.svc.History(context.Background(), staff.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	if history[0].RevokedAt == nil || history[0].RevokedBy != "admin1" {
		t.Fatalf("expected revocation metadata, got %+v", history[0])
	}
}

func TestPermissionService_Revoke_NoActiveGrant(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)

	if _, err := f.svc.Revoke(context.Background(), staff.ID, "p1", "admin1"); !errors.Is(err, domain.ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
}

func TestPermissionService_BulkGrant_PartialFailure(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)
	_, _ = f.svc.Grant(context.Background(), staff.ID, "p2", "admin1")

	granted, failed := f.svc.BulkGrant(context.Background(), staff.ID, []string{"p1", "p2", "missing"}, "admin1")
	if len(granted) != 1 || granted[0].Key != "houses.create" {
		t.Fatalf("unexpected granted outcomes: %+v", granted)
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %+v", failed)
	}
	for _, item := range failed {
		if item.Error == "" {
			t.Fatalf("failure missing error message: %+v", item)
		}
	}
}

func TestPermissionService_CopyPermissions(t *testing.T) {
	f := newPermissionFixture()
	source := f.seedUser("staff1", roleStaff)
	target := f.seedUser("staff2", roleStaff)
	_, _ = f.svc.Grant(context.Background(), source.ID, "p1", "admin1")
	_, _ = f.svc.Grant(context.Background(), source.ID, "p2", "admin1")
	// Target already holds one of them; that item must fail, the other copy.
	_, _ = f.svc.Grant(context.Background(), target.ID, "p2", "admin1")

	copied, failed, err := f.svc.CopyPermissions(context.Background(), source.ID, target.ID, "admin1")
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if len(copied) != 1 || copied[0].Key != "houses.create" {
		t.Fatalf("unexpected copied: %+v", copied)
	}
	if len(failed) != 1 {
		t.Fatalf("unexpected failed: %+v", failed)
	}
}

func TestPermissionService_CopyPermissions_Validation(t *testing.T) {
	f := newPermissionFixture()
	staff := f.seedUser("staff1", roleStaff)

	if _, _, err := f.svc.CopyPermissions(context.Background(), staff.ID, staff.ID, "admin1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for same source/target, got %v", err)
	}
	other := f.seedUser("staff2", roleStaff)
	if _, _, err := f.svc.CopyPermissions(context.Background(), staff.ID, other.ID, "admin1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty source, got %v", err)
	}
}
