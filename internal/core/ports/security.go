package ports

import (
	"context"

	"github.com/authapi/auth-service/internal/core/domain"
)

// PasswordHasher turns plaintext passwords into storable hashes.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify never returns an error; a malformed hash simply fails.
	Verify(ctx context.Context, plaintext, encoded string) bool
}

// TokenIssuer signs claims into a compact token.
type TokenIssuer interface {
	Issue(claims domain.Claims) (string, error)
}

// TokenValidator checks a token and returns its trusted claims.
type TokenValidator interface {
	Validate(token string) (domain.Claims, error)
}

// TokenCodec both issues and validates tokens.
type TokenCodec interface {
	TokenIssuer
	TokenValidator
}
