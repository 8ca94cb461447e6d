// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shutdown

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/california/internal/try"
	"github.com/z5labs/california/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelemetry struct {
	shutdown func(context.Context) error
	cleared  atomic.Bool
	clears   atomic.Int32
}

func (f *fakeTelemetry) Shutdown(ctx context.Context) error {
	return f.shutdown(ctx)
}

func (f *fakeTelemetry) Clear() error {
	f.clears.Add(1)
	f.cleared.Store(true)
	return nil
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestCoordinator_Run(t *testing.T) {
	t.Run("will report Flushed", func(t *testing.T) {
		t.Run("if the flush returns before the timeout", func(t *testing.T) {
			tel := &fakeTelemetry{
				shutdown: func(context.Context) error { return nil },
			}
			c := NewCoordinator(tel, Signals())

			outcome, err := c.Run(cancelled())

			require.NoError(t, err)
			assert.Equal(t, Flushed, outcome)
			assert.Equal(t, Terminated, c.State())
			assert.True(t, tel.cleared.Load())
		})

		t.Run("if nothing was ever set", func(t *testing.T) {
			tel := &fakeTelemetry{
				shutdown: func(context.Context) error { return telemetry.ErrUnavailable },
			}
			c := NewCoordinator(tel, Signals())

			outcome, err := c.Run(cancelled())

			assert.NoError(t, err)
			assert.Equal(t, Flushed, outcome)
		})

		t.Run("if the flush fails before the timeout", func(t *testing.T) {
			flushErr := errors.New("export failed")
			var logs bytes.Buffer
			tel := &fakeTelemetry{
				shutdown: func(context.Context) error { return flushErr },
			}
			c := NewCoordinator(tel, Signals(), LogHandler(slog.NewJSONHandler(&logs, nil)))

			outcome, err := c.Run(cancelled())

			assert.ErrorIs(t, err, flushErr)
			assert.Equal(t, Flushed, outcome)
			assert.Equal(t, Terminated, c.State())
			assert.Contains(t, logs.String(), "failed to flush telemetry")
		})
	})

	t.Run("will report TimedOut", func(t *testing.T) {
		t.Run("if the flush never returns", func(t *testing.T) {
			release := make(chan struct{})
			defer close(release)

			var logs bytes.Buffer
			tel := &fakeTelemetry{
				shutdown: func(ctx context.Context) error {
					<-release
					return nil
				},
			}
			timeout := 100 * time.Millisecond
			c := NewCoordinator(
				tel,
				Signals(),
				Timeout(timeout),
				LogHandler(slog.NewJSONHandler(&logs, nil)),
			)

			start := time.Now()
			outcome, err := c.Run(cancelled())
			elapsed := time.Since(start)

			assert.ErrorIs(t, err, ErrTimedOut)
			assert.Equal(t, TimedOut, outcome)
			assert.Equal(t, Terminated, c.State())
			assert.True(t, tel.cleared.Load())
			assert.GreaterOrEqual(t, elapsed, timeout)
			assert.Less(t, elapsed, timeout+time.Second)
			assert.Contains(t, logs.String(), "failed to shutdown OpenTelemetry")
			assert.Contains(t, logs.String(), `"level":"ERROR"`)
		})
	})

	t.Run("will hand the flush an uncancellable context", func(t *testing.T) {
		var flushCtxDone atomic.Bool
		tel := &fakeTelemetry{
			shutdown: func(ctx context.Context) error {
				flushCtxDone.Store(ctx.Err() != nil)
				return nil
			},
		}
		c := NewCoordinator(tel, Signals())

		_, err := c.Run(cancelled())

		require.NoError(t, err)
		assert.False(t, flushCtxDone.Load())
	})

	t.Run("will recover a panicking flush", func(t *testing.T) {
		tel := &fakeTelemetry{
			shutdown: func(context.Context) error { panic("exporter blew up") },
		}
		c := NewCoordinator(tel, Signals())

		outcome, err := c.Run(cancelled())

		var perr try.PanicError
		assert.ErrorAs(t, err, &perr)
		assert.Equal(t, Flushed, outcome)
		assert.Equal(t, Terminated, c.State())
	})

	t.Run("will run OnSignal hooks before draining", func(t *testing.T) {
		var (
			hookRan       atomic.Bool
			hookBeforeRun atomic.Bool
		)
		tel := &fakeTelemetry{
			shutdown: func(context.Context) error {
				hookBeforeRun.Store(hookRan.Load())
				return nil
			},
		}
		c := NewCoordinator(
			tel,
			Signals(),
			OnSignal(func() { panic("hook failed") }),
			OnSignal(func() { hookRan.Store(true) }),
		)

		_, err := c.Run(cancelled())

		require.NoError(t, err)
		assert.True(t, hookBeforeRun.Load())
	})

	t.Run("will stay Running", func(t *testing.T) {
		t.Run("until triggered", func(t *testing.T) {
			tel := &fakeTelemetry{
				shutdown: func(context.Context) error { return nil },
			}
			c := NewCoordinator(tel, Signals())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan State, 1)
			go func() {
				s, _ := c.Run(ctx)
				done <- s
			}()

			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, Running, c.State())

			cancel()
			select {
			case s := <-done:
				assert.Equal(t, Flushed, s)
			case <-time.After(5 * time.Second):
				t.Fatal("coordinator did not terminate")
			}
		})
	})

	t.Run("will return ErrAlreadyStarted", func(t *testing.T) {
		t.Run("if run a second time", func(t *testing.T) {
			tel := &fakeTelemetry{
				shutdown: func(context.Context) error { return nil },
			}
			c := NewCoordinator(tel, Signals())
			_, err := c.Run(cancelled())
			require.NoError(t, err)

			_, err = c.Run(cancelled())

			assert.ErrorIs(t, err, ErrAlreadyStarted)
			assert.Equal(t, int32(1), tel.clears.Load())
		})
	})

	t.Run("will clear a real registry", func(t *testing.T) {
		reg := telemetry.NewRegistry(telemetry.PublishGlobals(false))
		c := NewCoordinator(reg, Signals())

		outcome, err := c.Run(cancelled())

		require.NoError(t, err)
		assert.Equal(t, Flushed, outcome)
		assert.Equal(t, telemetry.StateCleared, reg.State())
	})
}

func TestCoordinator_Drain(t *testing.T) {
	t.Run("will not clear telemetry", func(t *testing.T) {
		tel := &fakeTelemetry{
			shutdown: func(context.Context) error { return nil },
		}
		c := NewCoordinator(tel)

		s := c.Drain(context.Background())

		assert.Equal(t, Flushed, s)
		assert.False(t, tel.cleared.Load())
	})
}

func TestState_String(t *testing.T) {
	states := []State{Running, SignalReceived, Draining, Flushed, TimedOut, Terminated}
	seen := map[string]bool{}
	for _, s := range states {
		seen[s.String()] = true
	}
	assert.Len(t, seen, len(states))
	assert.Equal(t, "unknown", State(99).String())
}
