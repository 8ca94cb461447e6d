// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpinstrument wraps a [http.Handler] so that every request
// runs inside a server span, returns its trace id to the caller and
// produces exactly one structured log record.
package httpinstrument

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/california/internal/try"
	"github.com/z5labs/california/pkg/noop"
	"github.com/z5labs/california/pkg/slogfield"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTraceIDHeader carries the bare trace id on responses.
const DefaultTraceIDHeader = "X-Trace-Id"

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	logHandler     slog.Handler
	operation      string
	traceIDHeader  string
}

// Option configures [Middleware].
type Option func(*options)

// TracerProvider sets the provider used for server spans.
// It defaults to the global provider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// MeterProvider sets the provider used for the standard HTTP server metrics.
// It defaults to the global provider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Propagator sets how trace context is read from requests and written to
// responses. It defaults to the global propagator.
func Propagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagator = p
	}
}

// LogHandler sets where request records are written.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// Operation names the server span when no route tag is present.
func Operation(name string) Option {
	return func(o *options) {
		o.operation = name
	}
}

// TraceIDHeader renames the response header holding the trace id.
// An empty name disables it.
func TraceIDHeader(name string) Option {
	return func(o *options) {
		o.traceIDHeader = name
	}
}

// Middleware instruments next.
func Middleware(next http.Handler, opts ...Option) http.Handler {
	o := &options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
		logHandler:     noop.LogHandler{},
		operation:      "http.server",
		traceIDHeader:  DefaultTraceIDHeader,
	}
	for _, opt := range opts {
		opt(o)
	}

	h := &handler{
		next:          next,
		log:           slog.New(o.logHandler),
		propagator:    o.propagator,
		traceIDHeader: o.traceIDHeader,
	}
	return otelhttp.NewHandler(
		h,
		o.operation,
		otelhttp.WithTracerProvider(o.tracerProvider),
		otelhttp.WithMeterProvider(o.meterProvider),
		otelhttp.WithPropagators(o.propagator),
	)
}

type handler struct {
	next          http.Handler
	log           *slog.Logger
	propagator    propagation.TextMapPropagator
	traceIDHeader string
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Headers must be in place before next writes the status line.
	try.Do(func() error {
		h.writeTraceHeaders(ctx, w.Header())
		return nil
	})

	m := httpsnoop.CaptureMetrics(h.next, w, r)

	try.Do(func() error {
		h.logRequest(ctx, r, m)
		return nil
	})
}

func (h *handler) writeTraceHeaders(ctx context.Context, hdr http.Header) {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return
	}
	h.propagator.Inject(ctx, propagation.HeaderCarrier(hdr))
	if h.traceIDHeader != "" {
		hdr.Set(h.traceIDHeader, spanCtx.TraceID().String())
	}
}

func (h *handler) logRequest(ctx context.Context, r *http.Request, m httpsnoop.Metrics) {
	if m.Code >= 200 && m.Code < 300 {
		h.log.InfoContext(
			ctx,
			"request completed",
			slogfield.HTTPMethod(r),
			slogfield.HTTPPath(r),
			slogfield.Elapsed(m.Duration),
		)
		return
	}
	h.log.ErrorContext(
		ctx,
		"request failed",
		slogfield.HTTPMethod(r),
		slogfield.HTTPPath(r),
		slogfield.Elapsed(m.Duration),
		slogfield.HTTPStatusCode(m.Code),
	)
}
