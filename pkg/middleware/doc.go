// Package middleware provides the authentication, role gating and rate limiting middleware.
//
// AuthMiddleware resolves the Bearer token into an *auth.AuthContext:
//
//	authMW := middleware.NewAuthMiddleware(authService)
//	protected.Use(authMW.Handler)
//	admin.Use(authMW.Handler, middleware.RequireAdmin)
//
// RequireAdmin and RequireOrgAdmin must run after AuthMiddleware. RateLimiter counts requests
// per client address in Redis so limits hold across replicas.
package middleware
