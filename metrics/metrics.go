// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package metrics defines the request counters exposed by the service.
package metrics

import (
	"context"
	"sync/atomic"

	"github.com/z5labs/california/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// Meter scope identifying the request counters.
const (
	ScopeName    = "metrics.opentelemetry"
	ScopeVersion = "0.17"
)

// Counter is a monotonic counter that records into an OpenTelemetry
// instrument and keeps a process local total.
type Counter struct {
	name  string
	total atomic.Int64
	inst  metric.Int64Counter
}

func newCounter(m metric.Meter, name, description string) (*Counter, error) {
	inst, err := m.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{name: name, inst: inst}, nil
}

// Add increments the counter by n. Negative values are ignored.
// Safe for concurrent use.
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	if n < 0 {
		return
	}
	c.total.Add(n)
	c.inst.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Total returns the sum of every accepted Add since creation.
func (c *Counter) Total() int64 {
	return c.total.Load()
}

// Name returns the instrument name.
func (c *Counter) Name() string {
	return c.name
}

// Metrics groups the counters incremented by the request handlers.
type Metrics struct {
	Index  *Counter
	Health *Counter
}

// New creates the counters using the meter provider held by reg.
// While reg is unset the counters still count locally but export
// nothing. A cleared registry yields [telemetry.ErrUnavailable].
func New(reg *telemetry.Registry) (*Metrics, error) {
	if reg.State() == telemetry.StateCleared {
		return nil, telemetry.ErrUnavailable
	}

	meter := reg.MeterProvider().Meter(
		ScopeName,
		metric.WithInstrumentationVersion(ScopeVersion),
		metric.WithSchemaURL(semconv.SchemaURL),
		metric.WithInstrumentationAttributes(attribute.String("crate", "metrics")),
	)

	index, err := newCounter(meter, "index_requests_total", "Total number of index requests")
	if err != nil {
		return nil, err
	}
	health, err := newCounter(meter, "health_requests_total", "Total number of health requests")
	if err != nil {
		return nil, err
	}
	return &Metrics{Index: index, Health: health}, nil
}
