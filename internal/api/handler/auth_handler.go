package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authapi/auth-service/internal/api/metrics"
	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// credentials carries the login identifier. Clients historically send it as
// "email" even when it is a plain username, so "email" wins when both are set.
type credentials struct {
	Email    string `json:"email"    validate:"required_without=Username" example:"alice@example.com"`
	Username string `json:"username" validate:"required_without=Email"    example:"alice"`
	Password string `json:"password" validate:"required,max=128"          example:"correct horse battery staple"`
}

func (c credentials) identifier() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Username
}

type registerRequest struct {
	credentials
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"firstname" validate:"omitempty,min=2" example:"Alice"`
	LastName        string `json:"lastname"  validate:"omitempty,min=2" example:"Liddell"`
}

// loginRequest is not run through the validator: every bad login, including
// an empty one, must fail as invalid credentials.
type loginRequest struct {
	credentials
}

type registerResponse struct {
	User *domain.User `json:"user"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Register creates a new user account with the User role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Identifier:      req.identifier(),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusCreated, registerResponse{User: user})
}

// Login verifies credentials and returns a signed session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	// An unreadable body is one more way to present bad credentials.
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
		return domain.ErrInvalidCredentials
	}

	token, err := h.authService.Login(c.Request().Context(), req.identifier(), req.Password)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = metrics.ResultInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return metrics.ResultInvalid
	case errors.Is(err, domain.ErrUserExists):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}
