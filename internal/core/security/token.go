package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authapi/auth-service/internal/core/domain"
)

// tokenClaims is the JWT payload: sub, role, exp, iat.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 session tokens with a single
// process-wide signing key.
type TokenCodec struct {
	key []byte
	now func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for iat and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(signingKey string, opts ...TokenOption) (*TokenCodec, error) {
	if signingKey == "" {
		return nil, errors.New("token codec: empty signing key")
	}
	c := &TokenCodec{key: []byte(signingKey), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs claims into header.payload.signature form.
func (c *TokenCodec) Issue(claims domain.Claims) (string, error) {
	if claims.Subject == "" || !claims.Role.Valid() || claims.ExpiresAt.IsZero() {
		return "", fmt.Errorf("issue token: incomplete claims")
	}

	payload := tokenClaims{
		Role: claims.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(c.now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature before looking at any claim, then checks
// expiry and converts the payload into domain claims.
func (c *TokenCodec) Validate(token string) (domain.Claims, error) {
	var payload tokenClaims
	_, err := jwt.ParseWithClaims(token, &payload,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenInvalidSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
		default:
			return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
		}
	}

	if payload.Subject == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing subject", domain.ErrTokenMalformed)
	}
	role, err := domain.ParseRole(payload.Role)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
	}

	return domain.Claims{
		Subject:   payload.Subject,
		Role:      role,
		ExpiresAt: payload.ExpiresAt.Time.UTC(),
	}, nil
}
