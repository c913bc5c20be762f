// Package async runs fire-and-forget background tasks with panic recovery and timeouts.
//
//	async.SafeGo(context.WithoutCancel(r.Context()), 10*time.Second, "otp email", func(ctx context.Context) error {
//		return mailer.SendOTP(ctx, email, code, purpose)
//	})
//
// Failures and panics are logged through the context logger and never reach the caller.
package async
