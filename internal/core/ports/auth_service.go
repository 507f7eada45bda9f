package ports

import (
	"context"

	"github.com/authapi/auth-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer on registration.
type RegisterInput struct {
	Identifier      string
	Password        string
	ConfirmPassword string // optional; checked only when non-empty
	FirstName       string
	LastName        string
}

// ProfileUpdateInput carries the fields a user may change on their own
// profile. Nil means "leave unchanged".
type ProfileUpdateInput struct {
	FirstName *string
	LastName  *string
	Password  *string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (string, error)
	Profile(ctx context.Context, principal domain.Principal) (*domain.User, error)
	UpdateProfile(ctx context.Context, principal domain.Principal, in ProfileUpdateInput) (*domain.User, error)
}
