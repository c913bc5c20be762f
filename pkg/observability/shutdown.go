package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc releases one resource during shutdown
type ShutdownFunc func(context.Context) error

type shutdownHook struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains the HTTP server on SIGINT or SIGTERM and then runs the registered
// hooks in registration order, so the scheduler stops before the pools it uses are closed.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration
	signals chan os.Signal

	mu    sync.Mutex
	hooks []shutdownHook
}

// NewShutdownManager creates a manager for server. A zero timeout means 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
		signals: make(chan os.Signal, 1),
	}
}

// RegisterShutdownFunc adds a named hook
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, shutdownHook{name: name, fn: fn})
}

// Trigger starts shutdown without an OS signal
func (sm *ShutdownManager) Trigger() {
	select {
	case sm.signals <- syscall.SIGTERM:
	default:
	}
}

// WaitForShutdown blocks until a signal or Trigger, then drains the server and runs the
// hooks. Hook failures are collected; the deadline aborts the remaining hooks.
func (sm *ShutdownManager) WaitForShutdown() error {
	signal.Notify(sm.signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sm.signals)

	sig := <-sm.signals
	sm.logger.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server did not drain")
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	sm.mu.Lock()
	hooks := append([]shutdownHook(nil), sm.hooks...)
	sm.mu.Unlock()

	for _, hook := range hooks {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: skipped, shutdown deadline exceeded", hook.name))
			continue
		}
		if err := hook.fn(ctx); err != nil {
			sm.logger.WithError(err).WithField("hook", hook.name).Error("shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("shutdown complete")
	return nil
}
