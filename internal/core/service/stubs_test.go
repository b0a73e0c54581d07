package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

// In-memory stubs shared by the service tests.

type stubUserRepo struct {
	users map[string]*domain.User
	seq   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, domain.ErrUserExists
		}
	}
	copy := cloneUser(user)
	r.seq++
	copy.ID = fmt.Sprintf("u%d", r.seq)
	r.users[copy.ID] = copy
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.GoogleID == googleID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) List(_ context.Context, filter ports.UserFilter) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		if filter.RoleSlug != "" && u.RoleSlug() != filter.RoleSlug {
			continue
		}
		out = append(out, cloneUser(u))
	}
	return out, nil
}

// seed inserts a pre-built user, assigning an id when missing.
func (r *stubUserRepo) seed(user *domain.User) *domain.User {
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("u%d", r.seq)
	}
	r.users[user.ID] = cloneUser(user)
	return user
}

type stubRoleRepo struct {
	bySlug map[string]*domain.Role
}

func newStubRoleRepo(roles ...*domain.Role) *stubRoleRepo {
	r := &stubRoleRepo{bySlug: make(map[string]*domain.Role)}
	for _, role := range roles {
		r.bySlug[role.Slug] = role
	}
	return r
}

func (r *stubRoleRepo) FindByID(_ context.Context, id string) (*domain.Role, error) {
	for _, role := range r.bySlug {
		if role.ID == id {
			return role, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleRepo) FindBySlug(_ context.Context, slug string) (*domain.Role, error) {
	if role, ok := r.bySlug[slug]; ok {
		return role, nil
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleRepo) Upsert(_ context.Context, role *domain.Role) (*domain.Role, error) {
	r.bySlug[role.Slug] = role
	return role, nil
}

func (r *stubRoleRepo) List(_ context.Context) ([]*domain.Role, error) {
	out := make([]*domain.Role, 0, len(r.bySlug))
	for _, role := range r.bySlug {
		out = append(out, role)
	}
	return out, nil
}

type stubRoleLimitRepo struct {
	bySlug map[string]*domain.RoleLimit
}

func newStubRoleLimitRepo(limits ...*domain.RoleLimit) *stubRoleLimitRepo {
	r := &stubRoleLimitRepo{bySlug: make(map[string]*domain.RoleLimit)}
	for _, l := range limits {
		r.bySlug[l.RoleSlug] = l
	}
	return r
}

func (r *stubRoleLimitRepo) FindBySlug(_ context.Context, slug string) (*domain.RoleLimit, error) {
	if l, ok := r.bySlug[slug]; ok {
		return l, nil
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleLimitRepo) Upsert(_ context.Context, limit *domain.RoleLimit) (*domain.RoleLimit, error) {
	r.bySlug[limit.RoleSlug] = limit
	return limit, nil
}

type stubPermissionRepo struct {
	byID map[string]*domain.Permission
}

func newStubPermissionRepo(perms ...*domain.Permission) *stubPermissionRepo {
	r := &stubPermissionRepo{byID: make(map[string]*domain.Permission)}
	for _, p := range perms {
		r.byID[p.ID] = p
	}
	return r
}

func (r *stubPermissionRepo) FindByID(_ context.Context, id string) (*domain.Permission, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPermissionNotFound
}

func (r *stubPermissionRepo) FindByKey(_ context.Context, key string) (*domain.Permission, error) {
	for _, p := range r.byID {
		if p.Key == key {
			return p, nil
		}
	}
	return nil, domain.ErrPermissionNotFound
}

func (r *stubPermissionRepo) Upsert(_ context.Context, perm *domain.Permission) (*domain.Permission, error) {
	if perm.ID == "" {
		perm.ID = "p" + perm.Key
	}
	r.byID[perm.ID] = perm
	return perm, nil
}

func (r *stubPermissionRepo) List(_ context.Context) ([]*domain.Permission, error) {
	out := make([]*domain.Permission, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out, nil
}

type stubRolePermRepo struct {
	byRole map[string][]string
}

func newStubRolePermRepo() *stubRolePermRepo {
	return &stubRolePermRepo{byRole: make(map[string][]string)}
}

func (r *stubRolePermRepo) KeysForRole(_ context.Context, roleID string) ([]string, error) {
	return append([]string(nil), r.byRole[roleID]...), nil
}

func (r *stubRolePermRepo) Assign(_ context.Context, assoc *domain.RolePermission) error {
	r.byRole[assoc.RoleID] = append(r.byRole[assoc.RoleID], assoc.PermissionKey)
	return nil
}

func (r *stubRolePermRepo) Remove(_ context.Context, roleID, permissionID string) error {
	return nil
}

type stubStaffPermRepo struct {
	grants []*domain.StaffPermission
	seq    int
}

func newStubStaffPermRepo() *stubStaffPermRepo {
	return &stubStaffPermRepo{}
}

func cloneGrant(g *domain.StaffPermission) *domain.StaffPermission {
	clone := *g
	return &clone
}

func (r *stubStaffPermRepo) Create(_ context.Context, grant *domain.StaffPermission) (*domain.StaffPermission, error) {
	copy := cloneGrant(grant)
	r.seq++
	copy.ID = fmt.Sprintf("g%d", r.seq)
	r.grants = append(r.grants, copy)
	return cloneGrant(copy), nil
}

func (r *stubStaffPermRepo) FindActive(_ context.Context, userID, permissionID string) (*domain.StaffPermission, error) {
	for _, g := range r.grants {
		if g.UserID == userID && g.PermissionID == permissionID && g.Active() {
			return cloneGrant(g), nil
		}
	}
	return nil, domain.ErrGrantNotFound
}

func (r *stubStaffPermRepo) ActiveForUser(_ context.Context, userID string) ([]*domain.StaffPermission, error) {
	var out []*domain.StaffPermission
	for _, g := range r.grants {
		if g.UserID == userID && g.Active() {
			out = append(out, cloneGrant(g))
		}
	}
	return out, nil
}

func (r *stubStaffPermRepo) HistoryForUser(_ context.Context, userID string) ([]*domain.StaffPermission, error) {
	var out []*domain.StaffPermission
	for _, g := range r.grants {
		if g.UserID == userID {
			out = append(out, cloneGrant(g))
		}
	}
	return out, nil
}

func (r *stubStaffPermRepo) Revoke(_ context.Context, grantID, revokedBy string, revokedAt time.Time) (*domain.StaffPermission, error) {
	for _, g := range r.grants {
		if g.ID == grantID && g.Active() {
			g.RevokedBy = revokedBy
			at := revokedAt
			g.RevokedAt = &at
			return cloneGrant(g), nil
		}
	}
	return nil, domain.ErrGrantNotFound
}

type stubTokenRepo struct {
	tokens map[string]*domain.RegistrationToken
	seq    int
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.RegistrationToken)}
}

func cloneToken(t *domain.RegistrationToken) *domain.RegistrationToken {
	clone := *t
	return &clone
}

func (r *stubTokenRepo) Create(_ context.Context, token *domain.RegistrationToken) (*domain.RegistrationToken, error) {
	copy := cloneToken(token)
	r.seq++
	copy.ID = fmt.Sprintf("t%d", r.seq)
	r.tokens[copy.ID] = copy
	return cloneToken(copy), nil
}

func (r *stubTokenRepo) FindByToken(_ context.Context, token string) (*domain.RegistrationToken, error) {
	for _, t := range r.tokens {
		if t.Token == token {
			return cloneToken(t), nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (r *stubTokenRepo) FindByID(_ context.Context, id string) (*domain.RegistrationToken, error) {
	if t, ok := r.tokens[id]; ok {
		return cloneToken(t), nil
	}
	return nil, domain.ErrTokenInvalid
}

func (r *stubTokenRepo) MarkUsed(_ context.Context, id, usedBy string, usedAt time.Time) error {
	t, ok := r.tokens[id]
	if !ok {
		return domain.ErrTokenInvalid
	}
	if t.Used {
		return domain.ErrTokenUsed
	}
	t.Used = true
	t.UsedBy = usedBy
	at := usedAt
	t.UsedAt = &at
	return nil
}

func (r *stubTokenRepo) MarkUnused(_ context.Context, id string) error {
	t, ok := r.tokens[id]
	if !ok {
		return domain.ErrTokenInvalid
	}
	t.Used = false
	t.UsedBy = ""
	t.UsedAt = nil
	return nil
}

func (r *stubTokenRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tokens[id]; !ok {
		return domain.ErrTokenInvalid
	}
	delete(r.tokens, id)
	return nil
}

func (r *stubTokenRepo) ListByCreator(_ context.Context, creatorID string, filter ports.TokenFilter) ([]*domain.RegistrationToken, error) {
	var out []*domain.RegistrationToken
	for _, t := range r.tokens {
		if t.CreatedBy != creatorID {
			continue
		}
		if filter.Used != nil && t.Used != *filter.Used {
			continue
		}
		if filter.RoleSlug != "" && t.RoleSlug != filter.RoleSlug {
			continue
		}
		if filter.Email != "" && !strings.Contains(t.Email, filter.Email) {
			continue
		}
		out = append(out, cloneToken(t))
	}
	return out, nil
}

type stubSessionRepo struct {
	sessions map[string]*domain.LoginAsSession
	seq      int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.LoginAsSession)}
}

func (r *stubSessionRepo) Create(_ context.Context, session *domain.LoginAsSession) (*domain.LoginAsSession, error) {
	copy := *session
	r.seq++
	copy.ID = fmt.Sprintf("s%d", r.seq)
	r.sessions[copy.ID] = &copy
	out := copy
	return &out, nil
}

func (r *stubSessionRepo) FindByID(_ context.Context, id string) (*domain.LoginAsSession, error) {
	if s, ok := r.sessions[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *stubSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}
