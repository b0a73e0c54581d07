package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	permissions ports.PermissionService
}

func NewAuthHandler(authService ports.AuthService, permissions ports.PermissionService) *AuthHandler {
	return &AuthHandler{authService: authService, permissions: permissions}
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name"     validate:"required"`
	Phone    string `json:"phone"    validate:"omitempty,phone"`
	Token    string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,password"`
}

// Register creates an account from self-service signup, optionally gated by a
// registration token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Token:    req.Token,
	})
	if err != nil {
		return err
	}

	if result.TokenConsumed {
		metrics.TokensConsumedTotal.Inc()
	}
	return c.JSON(http.StatusCreated, result)
}

// Login authenticates by email and password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrAccountInactive):
			metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, result)
}

// Refresh re-mints a credential pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// SetPassword sets a new password for the authenticated user. Federated
// accounts use this to enable password login.
func (h *AuthHandler) SetPassword(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.authService.SetPassword(c.Request().Context(), user.ID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Me returns the authenticated user with their effective permission set.
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	permissions, err := h.permissions.Resolve(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user":        user,
		"permissions": permissions,
	})
}
