package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

const (
	// tokenByteLen yields 256 bits of entropy per registration token.
	tokenByteLen          = 32
	defaultTokenRoleSlug  = domain.RoleCaretaker
	defaultTokenExpiryHrs = 24
)

// TokenService issues, validates, lists, and revokes registration tokens.
type TokenService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	tokens    ports.RegistrationTokenRepository
	clientURL string
	log       zerolog.Logger
}

func NewTokenService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.RegistrationTokenRepository,
	clientURL string,
	log zerolog.Logger,
) *TokenService {
	return &TokenService{users: users, roles: roles, tokens: tokens, clientURL: clientURL, log: log}
}

// Generate issues a single-use token gating account creation under the given
// role. An issuer may only grant a role strictly below their own rank.
func (s *TokenService) Generate(ctx context.Context, issuerID string, input ports.GenerateTokenInput) (*ports.GeneratedToken, error) {
	issuer, err := s.users.FindByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	if issuer.Role == nil {
		return nil, domain.ErrRoleNotFound
	}

	roleSlug := input.RoleSlug
	if roleSlug == "" {
		roleSlug = defaultTokenRoleSlug
	}
	target, err := s.roles.FindBySlug(ctx, roleSlug)
	if err != nil {
		return nil, err
	}
	if issuer.Role.Rank <= target.Rank {
		return nil, fmt.Errorf("%w: cannot issue tokens for role %q", domain.ErrInsufficientRank, roleSlug)
	}

	expiresIn := input.ExpiresInHours
	if expiresIn <= 0 {
		expiresIn = defaultTokenExpiryHrs
	}

	raw := make([]byte, tokenByteLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	metadata := map[string]any{
		"created_by_email": issuer.Email,
		"created_by_name":  issuer.Name,
	}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	now := time.Now().UTC()
	record := &domain.RegistrationToken{
		Token:     token,
		Email:     input.Email,
		RoleSlug:  roleSlug,
		CreatedBy: issuerID,
		ExpiresAt: now.Add(time.Duration(expiresIn) * time.Hour),
		Metadata:  metadata,
		CreatedAt: now,
	}
	if _, err := s.tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("issuer_id", issuerID).
		Str("role_slug", roleSlug).
		Time("expires_at", record.ExpiresAt).
		Msg("registration token issued")

	return &ports.GeneratedToken{
		Token:            token,
		RoleSlug:         roleSlug,
		Email:            input.Email,
		ExpiresAt:        record.ExpiresAt,
		RegistrationLink: fmt.Sprintf("%s/signup?token=%s", strings.TrimRight(s.clientURL, "/"), token),
	}, nil
}

// Validate checks the token without mutating it: consumption happens at the
// point of actual account creation, so a validated token whose downstream
// creation fails remains usable.
func (s *TokenService) Validate(ctx context.Context, token, email string) (*domain.RegistrationToken, error) {
	record, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if record.Used {
		return nil, domain.ErrTokenUsed
	}
	if record.Expired(time.Now().UTC()) {
		return nil, domain.ErrTokenExpired
	}
	if record.Email != "" && email != "" && !strings.EqualFold(record.Email, email) {
		return nil, fmt.Errorf("%w: token is bound to a different email", domain.ErrTokenInvalid)
	}
	return record, nil
}

// Revoke deletes an unused token. Only the issuer may revoke, and a consumed
// token can no longer be revoked.
func (s *TokenService) Revoke(ctx context.Context, tokenID, issuerID string) error {
	record, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if record.CreatedBy != issuerID {
		return domain.ErrTokenNotOwner
	}
	if record.Used {
		return domain.ErrTokenUsed
	}
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return err
	}

	s.log.Info().Str("token_id", tokenID).Str("issuer_id", issuerID).Msg("registration token revoked")
	return nil
}

// List returns the issuer's tokens, optionally filtered by used state, role,
// or email substring.
func (s *TokenService) List(ctx context.Context, issuerID string, filter ports.TokenFilter) ([]*domain.RegistrationToken, error) {
	return s.tokens.ListByCreator(ctx, issuerID, filter)
}
