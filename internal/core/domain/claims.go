package domain

import (
	"context"
	"time"
)

// Claims are the facts carried inside a session token.
// ExpiresAt has whole-second precision once encoded.
type Claims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	Subject string `json:"identifier"`
	Role    Role   `json:"role"`
}

// PrincipalFromClaims builds the request principal from validated claims.
func PrincipalFromClaims(c Claims) Principal {
	return Principal{Subject: c.Subject, Role: c.Role}
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}
