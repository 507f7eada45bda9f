package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn         func(ctx context.Context, identifier, password string) (string, error)
	profileFn       func(ctx context.Context, p domain.Principal) (*domain.User, error)
	updateProfileFn func(ctx context.Context, p domain.Principal, in ports.ProfileUpdateInput) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (string, error) {
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAuthService) Profile(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.profileFn(ctx, p)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, p domain.Principal, in ports.ProfileUpdateInput) (*domain.User, error) {
	return s.updateProfileFn(ctx, p, in)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Identifier != "alice@example.com" || in.FirstName != "Alice" || in.ConfirmPassword != "secret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "01J", Identifier: in.Identifier, FirstName: in.FirstName, PasswordHash: "hash", Role: domain.RoleUser}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/register",
		`{"email":"alice@example.com","password":"secret","confirm_password":"secret","firstname":"Alice"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["identifier"] != "alice@example.com" || user["role"] != "User" || user["firstname"] != "Alice" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_UsernameIdentifier(t *testing.T) {
	e := newEcho()
	var got string
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			got = in.Identifier
			return &domain.User{Identifier: in.Identifier, Role: domain.RoleUser}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/register", `{"username":"alice","password":"secret"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got != "alice" {
		t.Fatalf("expected identifier alice, got %q", got)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/register", `{"username":"bob","password":"secret"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Register(c)
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_ValidationRejectsBeforeService(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		field  string
		reason string
	}{
		{"no identifier", `{"password":"secret"}`, "identifier", domain.ReasonMissingField},
		{"no password", `{"email":"a@example.com"}`, "password", domain.ReasonMissingField},
		{"short name", `{"email":"a@example.com","password":"secret","lastname":"X"}`, "lastname", domain.ReasonNameTooShort},
		{"long password", `{"email":"a@example.com","password":"` + strings.Repeat("p", 129) + `"}`, "password", domain.ReasonPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			handler := NewAuthHandler(stub)

			c := e.NewContext(jsonRequest(http.MethodPost, "/register", tt.body), httptest.NewRecorder())

			err := handler.Register(c)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field || ve.Reason != tt.reason {
				t.Fatalf("expected %s/%s, got %s/%s", tt.field, tt.reason, ve.Field, ve.Reason)
			}
		})
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/register", "not-json"), httptest.NewRecorder())

	err := handler.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (string, error) {
			if identifier != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", identifier, password)
			}
			return "token123", nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com","password":"secret"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
}

func TestAuthHandler_Login_EmptyBodyReachesService(t *testing.T) {
	e := newEcho()
	called := false
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (string, error) {
			called = true
			return "", domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{}`), httptest.NewRecorder())

	err := handler.Login(c)
	if !called {
		t.Fatalf("service not called")
	}
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (string, error) {
			return "", domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com","password":"bad"}`), httptest.NewRecorder())

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_MalformedBodyIsInvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (string, error) {
			t.Fatalf("should not be called")
			return "", nil
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", "{"), httptest.NewRecorder())

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
