package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/api/middleware"
	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

type stubAuthService struct {
	registerFn    func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error)
	loginFn       func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	refreshFn     func(ctx context.Context, refreshToken string) (*ports.TokenPair, error)
	setPasswordFn func(ctx context.Context, userID, password string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, input)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) SetPassword(ctx context.Context, userID, password string) (*domain.User, error) {
	return s.setPasswordFn(ctx, userID, password)
}

func (s *stubAuthService) CreateUserAccount(context.Context, string, ports.CreateUserInput) (*ports.CreatedUser, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) UpdateUserLimits(context.Context, string, ports.UserLimitsUpdate) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) LoginAs(context.Context, string, string, string) (*ports.LoginAsResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) ExitLoginAs(context.Context, string, string) (*ports.LoginAsResult, error) {
	return nil, errors.New("not implemented")
}

type stubPermissionService struct {
	resolveFn func(ctx context.Context, userID string) ([]string, error)
	warmUpFn  func(ctx context.Context) (int, error)
}

func (s *stubPermissionService) Resolve(ctx context.Context, userID string) ([]string, error) {
	return s.resolveFn(ctx, userID)
}

func (s *stubPermissionService) ResolveRole(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *stubPermissionService) HasPermission(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubPermissionService) Grant(context.Context, string, string, string) (*domain.StaffPermission, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPermissionService) Revoke(context.Context, string, string, string) (*domain.StaffPermission, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPermissionService) BulkGrant(context.Context, string, []string, string) ([]ports.BatchItemOutcome, []ports.BatchItemOutcome) {
	return nil, nil
}

func (s *stubPermissionService) BulkRevoke(context.Context, string, []string, string) ([]ports.BatchItemOutcome, []ports.BatchItemOutcome) {
	return nil, nil
}

func (s *stubPermissionService) CopyPermissions(context.Context, string, string, string) ([]ports.BatchItemOutcome, []ports.BatchItemOutcome, error) {
	return nil, nil, errors.New("not implemented")
}

func (s *stubPermissionService) History(context.Context, string) ([]*domain.StaffPermission, error) {
	return nil, nil
}

func (s *stubPermissionService) StaffWithPermissions(context.Context) ([]ports.StaffPermissions, error) {
	return nil, nil
}

func (s *stubPermissionService) Catalog(context.Context) ([]*domain.Permission, error) {
	return nil, nil
}

func (s *stubPermissionService) WarmUp(ctx context.Context) (int, error) {
	if s.warmUpFn == nil {
		return 0, nil
	}
	return s.warmUpFn(ctx)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			if input.Email != "alice@example.com" || input.Token != "tok123" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &ports.AuthResult{
				User:          &domain.User{ID: "u1", Email: input.Email},
				Tokens:        ports.TokenPair{AccessToken: "at", RefreshToken: "rt"},
				Permissions:   []string{"notices.view"},
				TokenConsumed: true,
			}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Alice Smith","email":"alice@example.com","password":"Secret123","token":"tok123"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
}

func TestAuthHandler_Register_WeakPassword(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Alice Smith","email":"alice@example.com","password":"password1"}`)
	err := handler.Register(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Bob Jones","email":"bob@example.com","password":"Secret123"}`)
	if err := handler.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_MissingName(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"Secret123"}`)
	err := handler.Register(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

// A token in the request body does not mean one was consumed: federated
// upgrades complete the account in place and leave the token untouched.
func TestAuthHandler_Register_TokenMetricFollowsConsumption(t *testing.T) {
	register := func(t *testing.T, consumed bool) {
		t.Helper()
		stub := &stubAuthService{
			registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
				return &ports.AuthResult{
					User:          &domain.User{ID: "u1", Email: input.Email},
					Tokens:        ports.TokenPair{AccessToken: "at", RefreshToken: "rt"},
					TokenConsumed: consumed,
				}, nil
			},
		}
		handler := NewAuthHandler(stub, &stubPermissionService{})
		c, _ := newTestContext(t, http.MethodPost, "/api/auth/register",
			`{"name":"Alice Smith","email":"alice@example.com","password":"Secret123","token":"tok123"}`)
		if err := handler.Register(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
	}

	before := testutil.ToFloat64(metrics.TokensConsumedTotal)
	register(t, false)
	if got := testutil.ToFloat64(metrics.TokensConsumedTotal); got != before {
		t.Fatalf("counter moved without consumption: %v -> %v", before, got)
	}
	register(t, true)
	if got := testutil.ToFloat64(metrics.TokensConsumedTotal); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret123" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{
				User:   &domain.User{ID: "u1", Email: email},
				Tokens: ports.TokenPair{AccessToken: "at", RefreshToken: "rt"},
			}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"secret123"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	tokens, ok := resp["tokens"].(map[string]any)
	if !ok || tokens["access_token"] != "at" {
		t.Fatalf("unexpected tokens payload: %+v", resp["tokens"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrongpass1"}`)
	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/login", "{")
	err := handler.Login(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
			if refreshToken != "refresh-1" {
				t.Fatalf("unexpected token: %s", refreshToken)
			}
			return &ports.TokenPair{AccessToken: "new-at", RefreshToken: "new-rt"}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubPermissionService{})

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"refresh-1"}`)
	if err := handler.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	perms := &stubPermissionService{
		resolveFn: func(ctx context.Context, userID string) ([]string, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return []string{"houses.view.own", "notices.view"}, nil
		},
	}
	handler := NewAuthHandler(&stubAuthService{}, perms)

	c, rec := newTestContext(t, http.MethodGet, "/api/auth/me", "")
	c.Set(middleware.CtxUser, &domain.User{ID: "u1", Email: "alice@example.com"})

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	permissions, ok := resp["permissions"].([]any)
	if !ok || len(permissions) != 2 {
		t.Fatalf("unexpected permissions payload: %+v", resp["permissions"])
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{}, &stubPermissionService{})

	c, _ := newTestContext(t, http.MethodGet, "/api/auth/me", "")
	err := handler.Me(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
