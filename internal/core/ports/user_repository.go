package ports

import (
	"context"

	"github.com/authapi/auth-service/internal/core/domain"
)

// UserRepository defines the persistence operations the auth core relies on.
// Implementations must enforce identifier uniqueness.
type UserRepository interface {
	// FindByIdentifier returns domain.ErrUserNotFound when no user matches.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	// Create returns domain.ErrUserExists when the identifier is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update applies the non-nil fields of patch and returns the stored user.
	Update(ctx context.Context, identifier string, patch domain.UserPatch) (*domain.User, error)
}
