package models

import (
	"context"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

type AccessToken struct {
	Token     string     `json:"access_token"`
	Subject   string     `json:"subject"`
	Role      types.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	TokenID   string
	Subject   string
	Role      types.Role
	ExpiresAt time.Time
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns nil for unauthenticated requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
