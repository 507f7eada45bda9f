package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authapi/auth-service/internal/api/metrics"
	"github.com/authapi/auth-service/internal/core/domain"
)

// RequireRole lets the request through only when the authenticated principal
// holds role. It must run after Authenticate; the role is never read from
// headers or the body.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := domain.PrincipalFromContext(c.Request().Context())
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			if p.Role != role {
				metrics.RoleDenialsTotal.WithLabelValues(role.String()).Inc()
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
