package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/ports"
)

type CacheHandler struct {
	cache       ports.PermissionCache
	permissions ports.PermissionService
}

func NewCacheHandler(cache ports.PermissionCache, permissions ports.PermissionService) *CacheHandler {
	return &CacheHandler{cache: cache, permissions: permissions}
}

// Stats returns an observability snapshot of the permission cache.
func (h *CacheHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cache.Stats(c.Request().Context()))
}

// InvalidateAll flushes every cached permission set.
func (h *CacheHandler) InvalidateAll(c echo.Context) error {
	h.cache.InvalidateAll(c.Request().Context())
	metrics.CacheInvalidationsTotal.WithLabelValues("all").Inc()
	return c.NoContent(http.StatusNoContent)
}

// InvalidateUser flushes one user's cached permission set.
func (h *CacheHandler) InvalidateUser(c echo.Context) error {
	h.cache.InvalidateUser(c.Request().Context(), c.Param("userId"))
	metrics.CacheInvalidationsTotal.WithLabelValues("user").Inc()
	return c.NoContent(http.StatusNoContent)
}

// InvalidateRole flushes one role's cached permission set.
func (h *CacheHandler) InvalidateRole(c echo.Context) error {
	h.cache.InvalidateRole(c.Request().Context(), c.Param("roleId"))
	metrics.CacheInvalidationsTotal.WithLabelValues("role").Inc()
	return c.NoContent(http.StatusNoContent)
}

// WarmUp pre-resolves permission sets for all active users so the first
// request after a deploy or flush does not pay the resolution cost.
func (h *CacheHandler) WarmUp(c echo.Context) error {
	warmed, err := h.permissions.WarmUp(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"warmed_users": warmed})
}
