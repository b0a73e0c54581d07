package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/middleware"
	"github.com/nivaas/property-system/internal/core/domain"
)

// ctxUser extracts the identity injected by the Auth middleware. Presence of
// the user proves the middleware ran; anything else is a 401.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get(middleware.CtxUser).(*domain.User)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, nil
}
