package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/authapi/auth-service/internal/core/domain"
)

// principal returns the identity the Authenticate middleware stored on the
// request context. Handlers behind the guard can rely on it being present;
// its absence means the route was wired without the guard.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}
