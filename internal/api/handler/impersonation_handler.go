package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/ports"
)

type ImpersonationHandler struct {
	authService ports.AuthService
}

func NewImpersonationHandler(authService ports.AuthService) *ImpersonationHandler {
	return &ImpersonationHandler{authService: authService}
}

type loginAsRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Reason   string `json:"reason"`
}

type exitLoginAsRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Start begins an impersonation session and returns credentials scoped to the
// target identity.
func (h *ImpersonationHandler) Start(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req loginAsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.LoginAs(c.Request().Context(), actor.ID, req.TargetID, req.Reason)
	if err != nil {
		metrics.LoginAsSessionsTotal.WithLabelValues("denied").Inc()
		return err
	}

	metrics.LoginAsSessionsTotal.WithLabelValues("start").Inc()
	return c.JSON(http.StatusOK, result)
}

// Exit ends an impersonation session and returns credentials scoped back to
// the original actor.
func (h *ImpersonationHandler) Exit(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req exitLoginAsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.ExitLoginAs(c.Request().Context(), req.SessionID, actor.ID)
	if err != nil {
		return err
	}

	metrics.LoginAsSessionsTotal.WithLabelValues("exit").Inc()
	return c.JSON(http.StatusOK, result)
}
