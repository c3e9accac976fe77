package auth

import (
	"context"

	"github.com/labstack/echo/v4"
)

type userIDKey struct{}

// ClaimsContextKey is where the Auth Gate stores *Claims on the echo context.
const ClaimsContextKey = "claims"

// WithUserID returns a copy of ctx carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint)
	return id, ok && id != 0
}

// ClaimsFrom returns the claims the Auth Gate attached to c.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*Claims)
	return claims, ok
}
