package guard

import (
	"context"

	"github.com/dmitrijs2005/refinery/internal/server/auth"
)

type claimsKey struct{}

// WithClaims returns a context carrying the verified session claims.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by WithClaims, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}
