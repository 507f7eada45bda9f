package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/authapi/auth-service/internal/api/metrics"
	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

const bearerPrefix = "Bearer "

// Authenticate validates the bearer token and stores the resulting
// domain.Principal on the request context. Every failure gets the same
// opaque 401; the concrete reason only reaches the debug log and metrics.
func Authenticate(tokens ports.TokenValidator, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return reject(c, log, metrics.ResultMissing, nil)
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				return reject(c, log, validationResult(err), err)
			}

			metrics.TokenValidationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), domain.PrincipalFromClaims(claims))))
			return next(c)
		}
	}
}

// bearerToken accepts exactly "Bearer <token>": case-sensitive scheme, one
// space, and a non-empty token without further spaces.
func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func reject(c echo.Context, log zerolog.Logger, result string, err error) error {
	metrics.TokenValidationsTotal.WithLabelValues(result).Inc()
	log.Debug().
		Err(err).
		Str("reason", result).
		Str("path", c.Path()).
		Msg("request not authenticated")
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func validationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return metrics.ResultExpired
	case errors.Is(err, domain.ErrTokenInvalidSignature):
		return metrics.ResultInvalidSignature
	default:
		return metrics.ResultMalformed
	}
}
