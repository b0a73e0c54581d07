package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/ports"
)

type TokenHandler struct {
	tokens ports.TokenService
}

func NewTokenHandler(tokens ports.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type generateTokenRequest struct {
	Email          string         `json:"email"            validate:"omitempty,email"`
	RoleSlug       string         `json:"role_slug"        validate:"omitempty,oneof=developer web_owner staff house_owner caretaker"`
	ExpiresInHours int            `json:"expires_in_hours" validate:"omitempty,min=1"`
	Metadata       map[string]any `json:"metadata"`
}

type validateTokenRequest struct {
	Token string `json:"token" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Generate issues a registration token on behalf of the authenticated user.
func (h *TokenHandler) Generate(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req generateTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.tokens.Generate(c.Request().Context(), user.ID, ports.GenerateTokenInput{
		Email:          req.Email,
		RoleSlug:       req.RoleSlug,
		ExpiresInHours: req.ExpiresInHours,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues(token.RoleSlug).Inc()
	return c.JSON(http.StatusCreated, token)
}

// Validate checks a token without consuming it. Unauthenticated: the signup
// page calls this before the account exists.
func (h *TokenHandler) Validate(c echo.Context) error {
	var req validateTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	record, err := h.tokens.Validate(c.Request().Context(), req.Token, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"valid":      true,
		"role_slug":  record.RoleSlug,
		"email":      record.Email,
		"expires_at": record.ExpiresAt,
	})
}

// Revoke deletes an unused token owned by the authenticated user.
func (h *TokenHandler) Revoke(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	if err := h.tokens.Revoke(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the authenticated user's issued tokens. Query params: used
// (true/false), role, email.
func (h *TokenHandler) List(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	filter := ports.TokenFilter{
		RoleSlug: c.QueryParam("role"),
		Email:    c.QueryParam("email"),
	}
	switch c.QueryParam("used") {
	case "true":
		used := true
		filter.Used = &used
	case "false":
		used := false
		filter.Used = &used
	}

	tokens, err := h.tokens.List(c.Request().Context(), user.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tokens": tokens})
}
