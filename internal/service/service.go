// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package service implements the HTTP endpoints of otel-california.
package service

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/california/metrics"
	"github.com/z5labs/california/pkg/noop"
	"github.com/z5labs/california/pkg/slogfield"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/z5labs/california/internal/service"

type options struct {
	logHandler     slog.Handler
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

// Option configures a [Service].
type Option func(*options)

// LogHandler sets where handlers log.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// TracerProvider sets the provider used for handler spans.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// MetricsHandler exposes h at GET /metrics. A nil handler leaves
// the route unregistered.
func MetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metricsHandler = h
	}
}

// Service serves the index and health endpoints.
type Service struct {
	metrics        *metrics.Metrics
	log            *slog.Logger
	tracer         trace.Tracer
	metricsHandler http.Handler
}

// New returns a [Service] counting requests with m.
func New(m *metrics.Metrics, opts ...Option) *Service {
	o := &options{
		logHandler:     noop.LogHandler{},
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Service{
		metrics:        m,
		log:            slog.New(o.logHandler),
		tracer:         o.tracerProvider.Tracer(tracerName),
		metricsHandler: o.metricsHandler,
	}
}

// Routes returns the routing table.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	registerEndpoint(mux, "GET /{$}", http.HandlerFunc(s.index))
	registerEndpoint(mux, "GET /health", http.HandlerFunc(s.health))
	if s.metricsHandler != nil {
		registerEndpoint(mux, "GET /metrics", s.metricsHandler)
	}
	return mux
}

func registerEndpoint(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, otelhttp.WithRouteTag(pattern, h))
}

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Message string `json:"message"`
	TraceID string `json:"trace_id"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Service) index(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "index")
	defer span.End()

	s.metrics.Index.Add(ctx, 1)

	// All zeros when no span is being recorded.
	traceID := trace.SpanContextFromContext(ctx).TraceID().String()

	s.writeJSON(w, r, IndexResponse{
		Message: "Hello!",
		TraceID: traceID,
	})
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "health")
	defer span.End()

	s.metrics.Health.Add(ctx, 1)

	s.writeJSON(w, r, HealthResponse{Status: "UP"})
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to write response", slogfield.Error(err))
	}
}
