package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/authapi/auth-service/docs"
	"github.com/authapi/auth-service/internal/api/handler"
	"github.com/authapi/auth-service/internal/api/middleware"
	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. The router builds no
// storage or crypto of its own.
type Deps struct {
	AuthService ports.AuthService
	Tokens      ports.TokenValidator
	Logger      zerolog.Logger

	// Checkers feed the readiness probe, keyed by dependency name.
	Checkers map[string]handler.Checker

	// Metrics enables the HTTP request metrics and the /metrics endpoint.
	// Nil leaves both off.
	Metrics  prometheus.Registerer
	Gatherer prometheus.Gatherer

	CORSAllowOrigins []string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(d.CORSAllowOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	if d.Metrics != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "authapi",
			Subsystem:  "http",
			Registerer: d.Metrics,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: gatherer,
		}))
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	profileHandler := handler.NewProfileHandler(d.AuthService)
	protectedHandler := handler.NewProtectedHandler()
	healthHandler := handler.NewHealthHandler(d.Checkers)

	authenticate := middleware.Authenticate(d.Tokens, d.Logger)

	// --- Public routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	// --- Authenticated routes ---
	e.GET("/profile", profileHandler.Get, authenticate)
	e.PATCH("/profile", profileHandler.Update, authenticate)
	e.GET("/admin", protectedHandler.Admin, authenticate, middleware.RequireRole(domain.RoleAdmin))
	e.GET("/user", protectedHandler.User, authenticate, middleware.RequireRole(domain.RoleUser))

	// --- Health probes and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// requestLogger feeds echo's access log into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("remote_ip", v.RemoteIP).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
