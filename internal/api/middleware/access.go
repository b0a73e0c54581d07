package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/api/metrics"
	"github.com/nivaas/property-system/internal/core/service"
)

// accessDenied is the structured 403 payload: clients learn not just that the
// request was refused, but why.
type accessDenied struct {
	Error  string          `json:"error"`
	Denial *service.Denial `json:"denial"`
}

// Access enforces a declarative requirement through the access decision
// point. It must run after Auth.
func Access(decider *service.AccessDecider, req service.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserID).(string)
			role, _ := c.Get(CtxRole).(string)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			decision, err := decider.Decide(c.Request().Context(), userID, role, req)
			if err != nil {
				return err
			}
			if !decision.Allowed {
				metrics.AccessDecisionsTotal.WithLabelValues("deny", decision.Denial.Reason).Inc()
				return c.JSON(http.StatusForbidden, accessDenied{
					Error:  "access forbidden",
					Denial: decision.Denial,
				})
			}

			metrics.AccessDecisionsTotal.WithLabelValues("allow", "").Inc()
			return next(c)
		}
	}
}
