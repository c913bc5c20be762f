// Package contextkeys holds the request context keys shared across packages.
//
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

// AuthKey contains *auth.AuthContext.
// Set by middleware.AuthMiddleware; read through middleware.GetAuthContext.
const AuthKey Key = "auth_context"

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

