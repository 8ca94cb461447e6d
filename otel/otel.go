// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/z5labs/california/lifecycle"
	"github.com/z5labs/california/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	otelapi "go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultCleanupTimeout bounds the teardown of a partially built
// set of providers.
const DefaultCleanupTimeout = 2 * time.Second

type options struct {
	writer         io.Writer
	cleanupTimeout time.Duration
}

// Option configures [Build].
type Option func(*options)

// WithWriter sets where stdout exporters write. It defaults to [os.Stdout].
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// CleanupTimeout bounds how long a failed [Build] spends shutting down
// the providers it already built.
func CleanupTimeout(d time.Duration) Option {
	return func(o *options) {
		o.cleanupTimeout = d
	}
}

// Build constructs all three providers. Construction is all or nothing:
// if any piece fails, everything built so far is shut down within the
// cleanup timeout and only the construction error is returned. Errors
// from that teardown go to the global OTel error handler.
func Build(ctx context.Context, cfg Config, opts ...Option) (_ *telemetry.Providers, err error) {
	o := options{
		writer:         os.Stdout,
		cleanupTimeout: DefaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cleanupTimeout <= 0 {
		o.cleanupTimeout = DefaultCleanupTimeout
	}
	cfg = cfg.withDefaults()

	p := &telemetry.Providers{
		Propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
	defer func() {
		if err == nil {
			return
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cleanupTimeout)
		defer cancel()
		if serr := p.Shutdown(cctx); serr != nil {
			otelapi.Handle(serr)
		}
	}()

	factory, err := newExporterFactory(cfg, o, p)
	if err != nil {
		return nil, err
	}

	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p.Tracer, err = buildTracerProvider(ctx, cfg.Trace, factory, res)
	if err != nil {
		return nil, err
	}

	p.Meter, p.MetricsHandler, err = buildMeterProvider(ctx, cfg.Metric, factory, res)
	if err != nil {
		return nil, err
	}

	p.Logger, err = buildLoggerProvider(ctx, cfg.Log, factory, res)
	if err != nil {
		return nil, err
	}

	if cfg.Metric.Runtime {
		err = runtime.Start(runtime.WithMeterProvider(p.Meter))
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newExporterFactory(cfg Config, o options, p *telemetry.Providers) (exporterFactory, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		return stdoutExporters{w: &lockedWriter{w: o.writer}}, nil
	case ExporterOTLP:
	default:
		return nil, UnknownExporterError{Exporter: cfg.Exporter}
	}

	ep, err := parseEndpoint(cfg.Endpoint, cfg.Insecure)
	if err != nil {
		return nil, err
	}

	switch cfg.Protocol {
	case ProtocolGRPC:
		f, err := newGRPCExporters(ep)
		if err != nil {
			return nil, err
		}
		// Exporters created with WithGRPCConn leave the conn open.
		p.OnShutdown(lifecycle.Named("grpc conn", lifecycle.HookFunc(func(context.Context) error {
			return f.conn.Close()
		})))
		return f, nil
	case ProtocolHTTP:
		return httpExporters{endpoint: ep}, nil
	default:
		return nil, UnknownProtocolError{Protocol: cfg.Protocol}
	}
}

func buildTracerProvider(ctx context.Context, cfg TraceConfig, f exporterFactory, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := f.spanExporter(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(
			exp,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		),
	)
	return tp, nil
}

func buildMeterProvider(ctx context.Context, cfg MetricConfig, f exporterFactory, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	exp, err := f.metricExporter(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Interval))),
	}

	var h http.Handler
	if cfg.Prometheus {
		reg := prometheus.NewRegistry()
		reader, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, nil, errors.Join(err, exp.Shutdown(ctx))
		}
		opts = append(opts, sdkmetric.WithReader(reader))
		h = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	return sdkmetric.NewMeterProvider(opts...), h, nil
}

func buildLoggerProvider(ctx context.Context, cfg LogConfig, f exporterFactory, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exp, err := f.logExporter(ctx)
	if err != nil {
		return nil, err
	}

	processor := sdklog.NewBatchProcessor(
		exp,
		sdklog.WithExportInterval(cfg.ExportInterval),
		sdklog.WithExportMaxBatchSize(cfg.MaxBatchSize),
		sdklog.WithMaxQueueSize(cfg.MaxQueueSize),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
	return lp, nil
}
