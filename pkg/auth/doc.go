// Package auth implements PatentDesk accounts and sessions.
//
// # Sessions
//
// Login is two-step: a password check issues a one-time password by email, and a successful
// OTP verification issues a signed JWT. The token's jti is written to users.active_token,
// so a new login anywhere invalidates every earlier token for that user.
//
//	result, err := svc.Login(ctx, email, password)    // sends OTP
//	session, err := svc.VerifyOTP(ctx, email, code)   // returns token
//
// # OTP Store
//
// OTP codes, pending signups and resend throttles live in Redis with TTLs (OTPStore), so
// they survive restarts and are shared across replicas.
//
// # Auth Context
//
// middleware.AuthMiddleware produces a single *AuthContext per request carrying the user's
// id, email, admin flag and organization role. Handlers read it through
// middleware.GetAuthContext and never inspect claims directly.
package auth
