package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
	loginAsTTL      = 2 * time.Hour

	// onboardingTokenHours is the expiry of tokens issued alongside
	// administratively created accounts (one week).
	onboardingTokenHours = 168

	defaultLoginAsReason = "Administrative Access"
)

// AuthConfig carries the credential and registration settings of AuthService.
type AuthConfig struct {
	JWTSecret        string
	JWTRefreshSecret string
	// PublicRegistration permits token-less self-service registration.
	PublicRegistration bool
	// DefaultRole is the role slug assigned on public registration.
	DefaultRole string
}

// AuthService implements registration, login, administrative account
// creation, and the login-as impersonation lifecycle.
type AuthService struct {
	users       ports.UserRepository
	roles       ports.RoleRepository
	roleLimits  ports.RoleLimitRepository
	tokens      ports.RegistrationTokenRepository
	sessions    ports.LoginAsSessionRepository
	tokenSvc    ports.TokenService
	permissions ports.PermissionService
	hierarchy   ports.HierarchyService
	cfg         AuthConfig
	log         zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	roleLimits ports.RoleLimitRepository,
	tokens ports.RegistrationTokenRepository,
	sessions ports.LoginAsSessionRepository,
	tokenSvc ports.TokenService,
	permissions ports.PermissionService,
	hierarchy ports.HierarchyService,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleHouseOwner
	}
	return &AuthService{
		users:       users,
		roles:       roles,
		roleLimits:  roleLimits,
		tokens:      tokens,
		sessions:    sessions,
		tokenSvc:    tokenSvc,
		permissions: permissions,
		hierarchy:   hierarchy,
		cfg:         cfg,
		log:         log,
	}
}

// Register creates an account from self-service registration data. Without a
// registration token, public registration must be enabled. A token fixes the
// new account's role and links it under the token's issuer; the token is
// consumed only after the user row exists.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if input.Token == "" && !s.cfg.PublicRegistration {
		return nil, domain.ErrRegistrationDisabled
	}

	existing, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		// A federated-only account (Google sign-in, no password) completes
		// registration in place by setting a password.
		if existing.GoogleID != "" && !existing.HasPassword() {
			return s.upgradeFederatedAccount(ctx, existing, input)
		}
		return nil, domain.ErrUserExists
	}

	roleSlug := s.cfg.DefaultRole
	parentID := ""
	var tokenRecord *domain.RegistrationToken
	if input.Token != "" {
		tokenRecord, err = s.tokenSvc.Validate(ctx, input.Token, input.Email)
		if err != nil {
			return nil, err
		}
		roleSlug = tokenRecord.RoleSlug
		parentID = tokenRecord.CreatedBy
	}

	role, err := s.roles.FindBySlug(ctx, roleSlug)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	registeredVia := "public"
	if input.Token != "" {
		registeredVia = "token"
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		UUID:         uuid.NewString(),
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
		RoleID:       role.ID,
		ParentID:     parentID,
		Status:       domain.StatusActive,
		Metadata: map[string]any{
			"registered_via": registeredVia,
			"registered_at":  now.Format(time.RFC3339),
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if tokenRecord != nil {
		if err := s.tokens.MarkUsed(ctx, tokenRecord.ID, user.ID, now); err != nil {
			return nil, fmt.Errorf("consume registration token: %w", err)
		}
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		// The user row exists but credentials could not be minted; release
		// the token so the registration can be retried.
		if tokenRecord != nil {
			if uerr := s.tokens.MarkUnused(ctx, tokenRecord.ID); uerr != nil {
				s.log.Error().Err(uerr).Str("token_id", tokenRecord.ID).Msg("failed to release registration token")
			}
		}
		return nil, err
	}

	permissions, err := s.permissions.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role_slug", roleSlug).
		Str("registered_via", registeredVia).
		Msg("user registered")

	return &ports.AuthResult{
		User:          user,
		Tokens:        *pair,
		Permissions:   permissions,
		TokenConsumed: tokenRecord != nil,
	}, nil
}

func (s *AuthService) upgradeFederatedAccount(ctx context.Context, user *domain.User, input ports.RegisterInput) (*ports.AuthResult, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = hash
	user.NeedsPasswordSetup = false
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	user.UpdatedAt = time.Now().UTC()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(updated.ID)
	if err != nil {
		return nil, err
	}
	permissions, err := s.permissions.Resolve(ctx, updated.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", updated.ID).Msg("federated account upgraded with password")
	return &ports.AuthResult{User: updated, Tokens: *pair, Permissions: permissions}, nil
}

// Login authenticates by email and password and returns fresh credentials
// with the user's resolved permission set.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, fmt.Errorf("%w: password login unavailable, use federated sign-in or set a password", domain.ErrInvalidCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if user.Status != domain.StatusActive {
		return nil, domain.ErrAccountInactive
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if user, err = s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	permissions, err := s.permissions.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role_slug", user.RoleSlug()).Msg("login")
	return &ports.AuthResult{User: user, Tokens: *pair, Permissions: permissions}, nil
}

// Refresh re-mints a credential pair from a valid refresh token.
func (s *AuthService) Refresh(_ context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.cfg.JWTRefreshSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return nil, domain.ErrInvalidCredentials
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issueTokens(userID)
}

// SetPassword hashes and stores a new password for the user.
func (s *AuthService) SetPassword(ctx context.Context, userID, password string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.NeedsPasswordSetup = false
	user.UpdatedAt = time.Now().UTC()

	return s.users.Update(ctx, user)
}

// CreateUserAccount creates an account on behalf of a creator, who may only
// create roles strictly below their own rank. The new user is parented under
// the creator.
func (s *AuthService) CreateUserAccount(ctx context.Context, creatorID string, input ports.CreateUserInput) (*ports.CreatedUser, error) {
	creator, err := s.users.FindByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.Role == nil {
		return nil, domain.ErrRoleNotFound
	}

	targetRole, err := s.roles.FindBySlug(ctx, input.RoleSlug)
	if err != nil {
		return nil, err
	}
	if creator.Role.Rank <= targetRole.Rank {
		return nil, fmt.Errorf("%w: cannot create %s accounts", domain.ErrInsufficientRank, input.RoleSlug)
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	password := input.Password
	generatedPassword := ""
	if password == "" {
		raw := make([]byte, 8)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		password = hex.EncodeToString(raw)
		generatedPassword = password
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	metadata := map[string]any{
		"created_by": creator.Email,
		"created_at": now.Format(time.RFC3339),
	}
	if input.HouseLimit != nil {
		metadata["house_limit"] = *input.HouseLimit
	}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	user, err := s.users.Create(ctx, &domain.User{
		UUID:         uuid.NewString(),
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
		RoleID:       targetRole.ID,
		ParentID:     creatorID,
		Status:       domain.StatusActive,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if input.HouseLimit != nil && (input.RoleSlug == domain.RoleHouseOwner || input.RoleSlug == domain.RoleStaff) {
		if err := s.upsertHouseLimit(ctx, input.RoleSlug, *input.HouseLimit); err != nil {
			return nil, err
		}
	}

	result := &ports.CreatedUser{User: user, Password: generatedPassword}
	if input.GenerateToken {
		token, err := s.tokenSvc.Generate(ctx, creatorID, ports.GenerateTokenInput{
			Email:          user.Email,
			RoleSlug:       input.RoleSlug,
			ExpiresInHours: onboardingTokenHours,
			Metadata:       map[string]any{"auto_created": true},
		})
		if err != nil {
			return nil, err
		}
		result.RegistrationToken = token
	}

	s.log.Info().
		Str("creator_id", creatorID).
		Str("user_id", user.ID).
		Str("role_slug", input.RoleSlug).
		Msg("user account created")
	return result, nil
}

// UpdateUserLimits upserts the quota row for the user's role and records the
// update in the user's metadata.
func (s *AuthService) UpdateUserLimits(ctx context.Context, userID string, update ports.UserLimitsUpdate) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == nil {
		return nil, domain.ErrRoleNotFound
	}

	if update.HouseLimit != nil {
		if err := s.upsertHouseLimit(ctx, user.Role.Slug, *update.HouseLimit); err != nil {
			return nil, err
		}
	}

	if user.Metadata == nil {
		user.Metadata = map[string]any{}
	}
	if update.HouseLimit != nil {
		user.Metadata["house_limit"] = *update.HouseLimit
	}
	if update.Permissions != nil {
		user.Metadata["permissions"] = update.Permissions
	}
	now := time.Now().UTC()
	user.Metadata["updated_at"] = now.Format(time.RFC3339)
	user.UpdatedAt = now

	return s.users.Update(ctx, user)
}

func (s *AuthService) upsertHouseLimit(ctx context.Context, roleSlug string, maxHouses int) error {
	limit, err := s.roleLimits.FindBySlug(ctx, roleSlug)
	if err != nil {
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return err
		}
		limit = &domain.RoleLimit{RoleSlug: roleSlug, MaxCaretakers: 5, MaxFlats: 50}
	}
	limit.MaxHouses = maxHouses
	_, err = s.roleLimits.Upsert(ctx, limit)
	return err
}

// LoginAs starts an impersonation session: the actor obtains credentials
// scoped to the target identity, constrained by the actor role's allow-list
// and, below the top tier, by the management hierarchy.
func (s *AuthService) LoginAs(ctx context.Context, actorID, targetID, reason string) (*ports.LoginAsResult, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("actor: %w", domain.ErrUserNotFound)
		}
		return nil, err
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("target: %w", domain.ErrUserNotFound)
		}
		return nil, err
	}
	if actor.Role == nil || target.Role == nil {
		return nil, domain.ErrRoleNotFound
	}

	limit, err := s.roleLimits.FindBySlug(ctx, actor.Role.Slug)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, domain.ErrNotPermitted
		}
		return nil, err
	}
	if len(limit.CanLoginAs) == 0 {
		return nil, domain.ErrNotPermitted
	}
	if !limit.AllowsLoginAs(target.Role.Slug) {
		return nil, fmt.Errorf("%w: cannot login as %s users", domain.ErrRoleNotAllowed, target.Role.Slug)
	}

	if !domain.AlwaysAllowRole(actor.Role.Slug) {
		managed, err := s.hierarchy.IsManaged(ctx, actorID, targetID)
		if err != nil {
			return nil, err
		}
		if !managed {
			return nil, domain.ErrOutOfHierarchy
		}
	}

	if reason == "" {
		reason = defaultLoginAsReason
	}

	now := time.Now().UTC()
	session, err := s.sessions.Create(ctx, &domain.LoginAsSession{
		ActorID:       actorID,
		TargetID:      targetID,
		ActorRoleID:   actor.RoleID,
		ActorRoleSlug: actor.Role.Slug,
		Reason:        reason,
		ExpiresAt:     now.Add(loginAsTTL),
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(targetID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Str("session_id", session.ID).
		Str("reason", reason).
		Msg("login-as session started")
	return &ports.LoginAsResult{User: target, Tokens: *pair, Session: session}, nil
}

// ExitLoginAs terminates an impersonation session and re-issues credentials
// scoped back to the original actor. Only the actor who created the session
// may exit it; expired sessions read as absent.
func (s *AuthService) ExitLoginAs(ctx context.Context, sessionID, requesterID string) (*ports.LoginAsResult, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		// Lazy cleanup; there is no background sweep.
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	if session.ActorID != requesterID {
		return nil, domain.ErrNotSessionOwner
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return nil, err
	}

	actor, err := s.users.FindByID(ctx, session.ActorID)
	if err != nil {
		return nil, err
	}
	pair, err := s.issueTokens(actor.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", sessionID).Str("actor_id", actor.ID).Msg("login-as session ended")
	return &ports.LoginAsResult{User: actor, Tokens: *pair}, nil
}

// issueTokens mints the access/refresh credential pair for a user id.
func (s *AuthService) issueTokens(userID string) (*ports.TokenPair, error) {
	access, err := s.signToken(userID, "access", s.cfg.JWTSecret, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(userID, "refresh", s.cfg.JWTRefreshSecret, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) signToken(userID, typ, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"typ":     typ,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
