package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// SafeGo runs fn on its own goroutine under a timeout. Errors and panics are logged with the
// context logger and never reach the caller.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		if err := Wait(parentCtx, timeout, taskName, fn); err != nil {
			observability.FromContext(parentCtx).WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is SafeGo for functions without an error result
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Wait runs fn on the calling goroutine under a timeout and turns a panic into an error.
// The scheduler runs each cron job through it.
func Wait(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()
	defer recoverInto(ctx, taskName, &err)
	return fn(ctx)
}

func recoverInto(ctx context.Context, taskName string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	observability.FromContext(ctx).
		WithField("task", taskName).
		WithField("stack", string(debug.Stack())).
		Errorf("panic in task: %v", r)
	*err = fmt.Errorf("task %s panicked: %v", taskName, r)
}
