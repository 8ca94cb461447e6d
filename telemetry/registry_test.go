// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/z5labs/california/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newProviders() *Providers {
	return &Providers{
		Tracer: sdktrace.NewTracerProvider(),
		Meter:  sdkmetric.NewMeterProvider(),
		Logger: sdklog.NewLoggerProvider(),
	}
}

func TestRegistry_Set(t *testing.T) {
	t.Run("will move to StateSet", func(t *testing.T) {
		t.Run("if called the first time", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			p := newProviders()

			require.NoError(t, r.Set(p))

			assert.Equal(t, StateSet, r.State())
			got, err := r.Providers()
			require.NoError(t, err)
			assert.Same(t, p, got)
			assert.Same(t, p.Tracer, r.TracerProvider())
			assert.Same(t, p.Meter, r.MeterProvider())
			assert.Same(t, p.Logger, r.LoggerProvider())
		})
	})

	t.Run("will return ErrAlreadySet", func(t *testing.T) {
		t.Run("if called a second time", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			first := newProviders()
			require.NoError(t, r.Set(first))

			err := r.Set(newProviders())

			assert.ErrorIs(t, err, ErrAlreadySet)
			got, _ := r.Providers()
			assert.Same(t, first, got)
		})

		t.Run("if the registry was already cleared", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			require.NoError(t, r.Clear())

			err := r.Set(newProviders())

			assert.ErrorIs(t, err, ErrAlreadySet)
			assert.Equal(t, StateCleared, r.State())
		})
	})

	t.Run("will let exactly one caller win", func(t *testing.T) {
		t.Run("if many goroutines race to set", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))

			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			for range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if r.Set(newProviders()) == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	})

	t.Run("will reject nil providers", func(t *testing.T) {
		r := NewRegistry(PublishGlobals(false))

		assert.ErrorIs(t, r.Set(nil), ErrNilProviders)
		assert.Equal(t, StateUnset, r.State())
	})

	t.Run("will publish the globals", func(t *testing.T) {
		t.Run("if PublishGlobals is left enabled", func(t *testing.T) {
			r := NewRegistry()
			p := newProviders()
			require.NoError(t, r.Set(p))
			defer r.Clear()

			_, span := otel.Tracer("test").Start(context.Background(), "span")
			defer span.End()

			assert.True(t, span.SpanContext().IsValid())
		})
	})
}

func TestRegistry_Providers(t *testing.T) {
	t.Run("will return ErrUnavailable", func(t *testing.T) {
		t.Run("if nothing was set", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))

			_, err := r.Providers()

			assert.ErrorIs(t, err, ErrUnavailable)
		})

		t.Run("if the registry was cleared", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			require.NoError(t, r.Set(newProviders()))
			require.NoError(t, r.Clear())

			_, err := r.Providers()

			assert.ErrorIs(t, err, ErrUnavailable)
		})
	})

	t.Run("will return no-op providers", func(t *testing.T) {
		t.Run("if the registry is unset", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))

			_, span := r.TracerProvider().Tracer("test").Start(context.Background(), "span")
			defer span.End()

			assert.False(t, span.SpanContext().IsValid())
			assert.NotNil(t, r.MeterProvider())
			assert.NotNil(t, r.LoggerProvider())
			assert.NotNil(t, r.Propagator())
		})
	})
}

func TestRegistry_Shutdown(t *testing.T) {
	t.Run("will return ErrUnavailable", func(t *testing.T) {
		t.Run("if nothing was set", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))

			assert.ErrorIs(t, r.Shutdown(context.Background()), ErrUnavailable)
		})
	})

	t.Run("will run every hook", func(t *testing.T) {
		t.Run("even if one of them fails", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			p := newProviders()

			hookErr := errors.New("close failed")
			var closed atomic.Bool
			p.OnShutdown(lifecycle.HookFunc(func(context.Context) error {
				return hookErr
			}))
			p.OnShutdown(lifecycle.HookFunc(func(context.Context) error {
				closed.Store(true)
				return nil
			}))
			require.NoError(t, r.Set(p))

			err := r.Shutdown(context.Background())

			assert.ErrorIs(t, err, hookErr)
			assert.True(t, closed.Load())
		})
	})

	t.Run("will only shut the providers down once", func(t *testing.T) {
		t.Run("if called repeatedly", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			p := newProviders()

			var calls atomic.Int32
			p.OnShutdown(lifecycle.HookFunc(func(context.Context) error {
				calls.Add(1)
				return nil
			}))
			require.NoError(t, r.Set(p))

			require.NoError(t, r.Shutdown(context.Background()))
			require.NoError(t, r.Shutdown(context.Background()))

			assert.Equal(t, int32(1), calls.Load())
		})
	})
}

func TestRegistry_Clear(t *testing.T) {
	t.Run("will move to StateCleared", func(t *testing.T) {
		t.Run("if the registry was set", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			require.NoError(t, r.Set(newProviders()))

			require.NoError(t, r.Clear())

			assert.Equal(t, StateCleared, r.State())
		})

		t.Run("if the registry was never set", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))

			require.NoError(t, r.Clear())

			assert.Equal(t, StateCleared, r.State())
		})
	})

	t.Run("will return ErrAlreadyCleared", func(t *testing.T) {
		t.Run("if called a second time", func(t *testing.T) {
			r := NewRegistry(PublishGlobals(false))
			require.NoError(t, r.Clear())

			assert.ErrorIs(t, r.Clear(), ErrAlreadyCleared)
		})
	})

	t.Run("will restore no-op globals", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Set(newProviders()))
		require.NoError(t, r.Clear())

		_, span := otel.Tracer("test").Start(context.Background(), "span")
		defer span.End()

		assert.False(t, span.SpanContext().IsValid())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unset", StateUnset.String())
	assert.Equal(t, "set", StateSet.String())
	assert.Equal(t, "cleared", StateCleared.String())
	assert.Equal(t, "unknown", State(42).String())
}
