package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/ports"
)

type StaffPermissionHandler struct {
	permissions ports.PermissionService
}

func NewStaffPermissionHandler(permissions ports.PermissionService) *StaffPermissionHandler {
	return &StaffPermissionHandler{permissions: permissions}
}

type grantRequest struct {
	PermissionID string `json:"permission_id" validate:"required"`
}

type bulkPermissionRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1"`
}

type copyPermissionsRequest struct {
	SourceUserID string `json:"source_user_id" validate:"required"`
}

type batchResponse struct {
	Granted []ports.BatchItemOutcome `json:"granted,omitempty"`
	Revoked []ports.BatchItemOutcome `json:"revoked,omitempty"`
	Failed  []ports.BatchItemOutcome `json:"failed,omitempty"`
}

// Catalog returns the full permission catalog.
func (h *StaffPermissionHandler) Catalog(c echo.Context) error {
	perms, err := h.permissions.Catalog(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"permissions": perms})
}

// Grant gives a staff user an individual permission.
func (h *StaffPermissionHandler) Grant(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	grant, err := h.permissions.Grant(c.Request().Context(), c.Param("userId"), req.PermissionID, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, grant)
}

// Revoke withdraws an individual permission from a staff user.
func (h *StaffPermissionHandler) Revoke(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	grant, err := h.permissions.Revoke(c.Request().Context(), c.Param("userId"), c.Param("permissionId"), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

// BulkGrant grants a set of permissions, reporting per-item outcomes.
func (h *StaffPermissionHandler) BulkGrant(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req bulkPermissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	granted, failed := h.permissions.BulkGrant(c.Request().Context(), c.Param("userId"), req.PermissionIDs, actor.ID)
	return c.JSON(http.StatusOK, batchResponse{Granted: granted, Failed: failed})
}

// BulkRevoke revokes a set of permissions, reporting per-item outcomes.
func (h *StaffPermissionHandler) BulkRevoke(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req bulkPermissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	revoked, failed := h.permissions.BulkRevoke(c.Request().Context(), c.Param("userId"), req.PermissionIDs, actor.ID)
	return c.JSON(http.StatusOK, batchResponse{Revoked: revoked, Failed: failed})
}

// Copy replicates one staff user's active grants onto another.
func (h *StaffPermissionHandler) Copy(c echo.Context) error {
	actor, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req copyPermissionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	granted, failed, err := h.permissions.CopyPermissions(c.Request().Context(), req.SourceUserID, c.Param("userId"), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, batchResponse{Granted: granted, Failed: failed})
}

// History returns the full grant history (active and revoked) of a user.
func (h *StaffPermissionHandler) History(c echo.Context) error {
	history, err := h.permissions.History(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"history": history})
}

// StaffList returns all staff users with their active individual grants.
func (h *StaffPermissionHandler) StaffList(c echo.Context) error {
	staff, err := h.permissions.StaffWithPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"staff": staff})
}

// MyPermissions resolves the authenticated user's effective permission set.
func (h *StaffPermissionHandler) MyPermissions(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	start := time.Now()
	permissions, err := h.permissions.Resolve(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	metrics.PermissionResolveDuration.Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, map[string]any{"permissions": permissions})
}

// Check reports whether the authenticated user holds a single permission key.
func (h *StaffPermissionHandler) Check(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	has, err := h.permissions.HasPermission(c.Request().Context(), user.ID, key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"key": key, "has_permission": has})
}
