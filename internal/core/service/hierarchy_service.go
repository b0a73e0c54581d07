package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

// maxWalkDepth bounds the upward parent walk. Creation rules (strictly lower
// rank than the creator) structurally prevent cycles, but the walk still fails
// closed rather than looping on unexpected structure.
const maxWalkDepth = 32

// HierarchyService resolves creator/manager relationships by following parent
// references upward.
type HierarchyService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

func NewHierarchyService(users ports.UserRepository, log zerolog.Logger) *HierarchyService {
	return &HierarchyService{users: users, log: log}
}

// IsManaged reports whether ancestorID appears in descendantID's parent chain.
// A direct parent counts. The walk terminates at the first user with no
// parent; exceeding maxWalkDepth returns false with a validation error.
func (s *HierarchyService) IsManaged(ctx context.Context, ancestorID, descendantID string) (bool, error) {
	current := descendantID
	for depth := 0; depth < maxWalkDepth; depth++ {
		user, err := s.users.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return false, nil
			}
			return false, err
		}
		if user.ParentID == "" {
			return false, nil
		}
		if user.ParentID == ancestorID {
			return true, nil
		}
		current = user.ParentID
	}

	s.log.Warn().
		Str("ancestor_id", ancestorID).
		Str("descendant_id", descendantID).
		Int("max_depth", maxWalkDepth).
		Msg("hierarchy walk exceeded depth bound")
	return false, fmt.Errorf("%w: parent chain exceeds %d levels", domain.ErrValidation, maxWalkDepth)
}

// ManagedUsers returns every user whose parent chain reaches ancestorID,
// optionally pre-filtered by role slug. O(n·depth) over the tenant's users.
func (s *HierarchyService) ManagedUsers(ctx context.Context, ancestorID, roleFilter string) ([]*domain.User, error) {
	if _, err := s.users.FindByID(ctx, ancestorID); err != nil {
		return nil, err
	}

	all, err := s.users.List(ctx, ports.UserFilter{RoleSlug: roleFilter})
	if err != nil {
		return nil, err
	}

	managed := make([]*domain.User, 0, len(all))
	for _, candidate := range all {
		if candidate.ID == ancestorID {
			continue
		}
		ok, err := s.IsManaged(ctx, ancestorID, candidate.ID)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				// Fail closed: ambiguous structure is "not managed".
				continue
			}
			return nil, err
		}
		if ok {
			managed = append(managed, candidate)
		}
	}
	return managed, nil
}
