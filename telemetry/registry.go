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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrUnavailable is returned when providers are requested
	// while the [Registry] is not in [StateSet].
	ErrUnavailable = errors.New("telemetry: unavailable")

	// ErrAlreadySet is returned by a second call to [Registry.Set].
	ErrAlreadySet = errors.New("telemetry: providers already set")

	// ErrAlreadyCleared is returned by a second call to [Registry.Clear].
	ErrAlreadyCleared = errors.New("telemetry: registry already cleared")

	// ErrNilProviders is returned when [Registry.Set] is given nil.
	ErrNilProviders = errors.New("telemetry: nil providers")
)

// State is the lifecycle position of a [Registry].
type State int32

const (
	StateUnset State = iota
	StateSet
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateSet:
		return "set"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

type cell struct {
	state     State
	providers *Providers
}

// Registry owns the process's signal providers. It moves through
// Unset, Set and Cleared exactly once each and never goes back.
type Registry struct {
	publishGlobals bool

	mu   sync.Mutex
	cell atomic.Pointer[cell]
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// PublishGlobals controls whether [Registry.Set] and [Registry.Clear]
// also update the OpenTelemetry global providers. It defaults to true.
func PublishGlobals(b bool) RegistryOption {
	return func(r *Registry) {
		r.publishGlobals = b
	}
}

// NewRegistry returns a [Registry] in [StateUnset].
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		publishGlobals: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cell.Store(&cell{state: StateUnset})
	return r
}

// State returns the current lifecycle position.
func (r *Registry) State() State {
	return r.cell.Load().state
}

// Set stores p and, unless disabled, installs it as the OpenTelemetry globals.
func (r *Registry) Set(p *Providers) error {
	if p == nil {
		return ErrNilProviders
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cell.Load().state != StateUnset {
		return ErrAlreadySet
	}
	r.cell.Store(&cell{state: StateSet, providers: p})

	if r.publishGlobals {
		setGlobals(r.TracerProvider(), r.MeterProvider(), r.LoggerProvider(), r.Propagator())
	}
	return nil
}

// Providers returns the stored providers or [ErrUnavailable].
func (r *Registry) Providers() (*Providers, error) {
	c := r.cell.Load()
	if c.state != StateSet {
		return nil, ErrUnavailable
	}
	return c.providers, nil
}

// TracerProvider returns the stored tracer provider or a no-op one.
func (r *Registry) TracerProvider() trace.TracerProvider {
	p, err := r.Providers()
	if err != nil || p.Tracer == nil {
		return tracenoop.NewTracerProvider()
	}
	return p.Tracer
}

// MeterProvider returns the stored meter provider or a no-op one.
func (r *Registry) MeterProvider() metric.MeterProvider {
	p, err := r.Providers()
	if err != nil || p.Meter == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.Meter
}

// LoggerProvider returns the stored logger provider or a no-op one.
func (r *Registry) LoggerProvider() log.LoggerProvider {
	p, err := r.Providers()
	if err != nil || p.Logger == nil {
		return lognoop.NewLoggerProvider()
	}
	return p.Logger
}

// Propagator returns the stored propagator, falling back to
// W3C trace context and baggage.
func (r *Registry) Propagator() propagation.TextMapPropagator {
	p, err := r.Providers()
	if err != nil || p.Propagator == nil {
		return defaultPropagator()
	}
	return p.Propagator
}

// Shutdown flushes and closes the stored providers. It blocks until
// they finish or ctx is done and returns [ErrUnavailable] unless the
// registry is in [StateSet].
func (r *Registry) Shutdown(ctx context.Context) error {
	p, err := r.Providers()
	if err != nil {
		return err
	}
	return p.Shutdown(ctx)
}

// Clear moves the registry to [StateCleared] and restores no-op globals.
// Accessors keep working afterwards and return no-op providers.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cell.Load().state == StateCleared {
		return ErrAlreadyCleared
	}
	r.cell.Store(&cell{state: StateCleared})

	if r.publishGlobals {
		setGlobals(
			tracenoop.NewTracerProvider(),
			metricnoop.NewMeterProvider(),
			lognoop.NewLoggerProvider(),
			propagation.NewCompositeTextMapPropagator(),
		)
	}
	return nil
}

func defaultPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func setGlobals(tp trace.TracerProvider, mp metric.MeterProvider, lp log.LoggerProvider, prop propagation.TextMapPropagator) {
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(prop)
}
