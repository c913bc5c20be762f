package async

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func loggedContext(buf *syncBuffer) context.Context {
	logger := observability.NewLogger(observability.DebugLevel, buf)
	return observability.WithLogger(context.Background(), logger)
}

func TestSafeGo_Success(t *testing.T) {
	executed := atomic.Bool{}

	SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	assert.Eventually(t, executed.Load, time.Second, 10*time.Millisecond)
}

func TestSafeGo_WithError(t *testing.T) {
	buf := &syncBuffer{}

	SafeGo(loggedContext(buf), time.Second, "failing task", func(ctx context.Context) error {
		return errors.New("boom")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("background task failed"))
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, buf.String(), "failing task")
}

func TestSafeGo_Timeout(t *testing.T) {
	cancelled := atomic.Bool{}

	SafeGo(context.Background(), 50*time.Millisecond, "slow task", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			cancelled.Store(true)
			return ctx.Err()
		}
	})

	assert.Eventually(t, cancelled.Load, time.Second, 10*time.Millisecond)
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	buf := &syncBuffer{}

	SafeGo(loggedContext(buf), time.Second, "panicking task", func(ctx context.Context) error {
		panic("test panic")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("test panic"))
	}, time.Second, 10*time.Millisecond)
}

func TestSafeGo_DetachedFromRequest(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := atomic.Bool{}

	SafeGo(context.WithoutCancel(parent), time.Second, "detached", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() == nil {
			done.Store(true)
		}
		return nil
	})
	cancel()

	assert.Eventually(t, done.Load, time.Second, 10*time.Millisecond)
}

func TestSafeGoNoError(t *testing.T) {
	executed := atomic.Bool{}

	SafeGoNoError(context.Background(), time.Second, "no error", func(ctx context.Context) {
		executed.Store(true)
	})

	assert.Eventually(t, executed.Load, time.Second, 10*time.Millisecond)
}

func TestWait(t *testing.T) {
	t.Run("returns error", func(t *testing.T) {
		err := Wait(context.Background(), time.Second, "job", func(ctx context.Context) error {
			return errors.New("job failed")
		})
		require.Error(t, err)
		assert.Equal(t, "job failed", err.Error())
	})

	t.Run("converts panic", func(t *testing.T) {
		buf := &syncBuffer{}
		err := Wait(loggedContext(buf), time.Second, "job", func(ctx context.Context) error {
			panic("kaboom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
		assert.Contains(t, buf.String(), "kaboom")
	})
}
