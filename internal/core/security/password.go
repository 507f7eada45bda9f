// Package security holds the credential hasher and the session token codec.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/authapi/auth-service/internal/core/domain"
)

// BcryptHasher hashes passwords with bcrypt after mixing in a server-side
// pepper. The HMAC pre-hash keeps the bcrypt input at a fixed 44 bytes, so
// long passwords are never silently truncated at bcrypt's 72 byte limit.
type BcryptHasher struct {
	cost   int
	pepper []byte
	log    zerolog.Logger
}

// NewBcryptHasher rejects costs outside bcrypt's range and an empty pepper.
func NewBcryptHasher(cost int, pepper string, log zerolog.Logger) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: cost %d outside [%d, %d]", domain.ErrHashing, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if pepper == "" {
		return nil, fmt.Errorf("%w: empty pepper", domain.ErrHashing)
	}
	return &BcryptHasher{cost: cost, pepper: []byte(pepper), log: log}, nil
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrHashing)
	}

	hash, err := bcrypt.GenerateFromPassword(h.peppered(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches encoded. bcrypt compares in
// constant time. A stored hash that cannot be parsed counts as a mismatch.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, encoded string) bool {
	if ctx.Err() != nil {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), h.peppered(plaintext))
	switch {
	case err == nil:
		return true
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false
	default:
		h.log.Warn().Err(err).Msg("password verification failed: unusable stored hash")
		return false
	}
}

func (h *BcryptHasher) peppered(plaintext string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(plaintext))
	sum := mac.Sum(nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}
