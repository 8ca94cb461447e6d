// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires configuration, telemetry and the HTTP service
// into a runnable application.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/z5labs/california/http"
	"github.com/z5labs/california/http/httpinstrument"
	"github.com/z5labs/california/internal/service"
	"github.com/z5labs/california/metrics"
	"github.com/z5labs/california/otel"
	"github.com/z5labs/california/pkg/otelslog"
	"github.com/z5labs/california/pkg/slogfield"
	"github.com/z5labs/california/shutdown"
	"github.com/z5labs/california/telemetry"

	otelbridge "go.opentelemetry.io/contrib/bridges/otelslog"
	otelapi "go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

type options struct {
	logWriter io.Writer
	signals   []os.Signal
	otelOpts  []otel.Option
}

// Option configures [Build].
type Option func(*options)

// LogWriter sets where local logs are written. It defaults to [os.Stderr].
func LogWriter(w io.Writer) Option {
	return func(o *options) {
		o.logWriter = w
	}
}

// Signals replaces the signals that trigger shutdown.
func Signals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// OTelOptions are passed through to [otel.Build].
func OTelOptions(opts ...otel.Option) Option {
	return func(o *options) {
		o.otelOpts = append(o.otelOpts, opts...)
	}
}

// App serves HTTP until it is told to stop and then tears telemetry down.
type App struct {
	registry        *telemetry.Registry
	runtime         *http.Runtime
	log             *slog.Logger
	shutdownOptions []shutdown.Option
}

// Build initializes telemetry and the HTTP service described by cfg.
// Any telemetry initialization failure is returned and the service
// must not start. An empty OTLP endpoint is not a failure: the
// service runs with telemetry disabled.
func Build(ctx context.Context, cfg Config, opts ...Option) (_ *App, err error) {
	o := &options{
		logWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	sink := newLocalHandler(o.logWriter, cfg)
	local := otelslog.NewHandler(sink)
	log := slog.New(local)

	reg := telemetry.NewRegistry()
	defer func() {
		if err == nil {
			return
		}
		// Teardown is bounded like any other shutdown and only logged,
		// so the startup error stays the one reported.
		if reg.State() == telemetry.StateSet {
			shutdown.NewCoordinator(
				reg,
				shutdown.Timeout(shutdownTimeout(cfg)),
				shutdown.LogHandler(local),
			).Drain(ctx)
		}
		reg.Clear()
	}()

	logHandler := slog.Handler(local)
	if cfg.telemetryDisabled() {
		log.WarnContext(ctx, "telemetry disabled", slogfield.String("reason", "no collector endpoint configured"))
	} else {
		// Export failures go to the local sink only so they never
		// feed back into the log exporter.
		otelapi.SetErrorHandler(otelapi.ErrorHandlerFunc(func(err error) {
			log.Warn("telemetry export failed", slogfield.Error(err))
		}))

		otelOpts := append([]otel.Option{otel.CleanupTimeout(shutdownTimeout(cfg))}, o.otelOpts...)

		var p *telemetry.Providers
		p, err = otel.Build(ctx, cfg.otelConfig(), otelOpts...)
		if err != nil {
			return nil, err
		}
		err = reg.Set(p)
		if err != nil {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout(cfg))
			defer cancel()
			if serr := p.Shutdown(sctx); serr != nil {
				log.WarnContext(ctx, "failed to shut down unused telemetry", slogfield.Error(serr))
			}
			return nil, err
		}

		bridge := otelbridge.NewHandler(
			cfg.Service.Name,
			otelbridge.WithLoggerProvider(reg.LoggerProvider()),
			otelbridge.WithVersion(cfg.Service.Version),
		)
		logHandler = otelslog.NewHandler(otelslog.Fanout(
			sink,
			otelslog.WithLevel(bridge, cfg.Logging.Level),
		))

		log.InfoContext(
			ctx,
			"telemetry enabled",
			slogfield.String("exporter", cfg.OTel.Exporter),
			slogfield.String("endpoint", cfg.OTel.Endpoint),
		)
	}

	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	svcOpts := []service.Option{
		service.LogHandler(logHandler),
		service.TracerProvider(reg.TracerProvider()),
	}
	if p, perr := reg.Providers(); perr == nil {
		svcOpts = append(svcOpts, service.MetricsHandler(p.MetricsHandler))
	}
	svc := service.New(m, svcOpts...)

	h := httpinstrument.Middleware(
		svc.Routes(),
		httpinstrument.TracerProvider(reg.TracerProvider()),
		httpinstrument.MeterProvider(reg.MeterProvider()),
		httpinstrument.Propagator(reg.Propagator()),
		httpinstrument.LogHandler(logHandler),
		httpinstrument.Operation(cfg.Service.Name),
	)

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return nil, err
	}

	rt := http.NewRuntime(
		ln,
		h,
		http.ReadTimeout(cfg.HTTP.ReadTimeout),
		http.ReadHeaderTimeout(cfg.HTTP.ReadHeaderTimeout),
		http.WriteTimeout(cfg.HTTP.WriteTimeout),
		http.IdleTimeout(cfg.HTTP.IdleTimeout),
		http.ShutdownTimeout(cfg.HTTP.ShutdownTimeout),
		http.LogHandler(logHandler),
	)

	a := &App{
		registry: reg,
		runtime:  rt,
		log:      log,
		shutdownOptions: []shutdown.Option{
			shutdown.Timeout(cfg.Shutdown.Timeout),
			shutdown.LogHandler(local),
		},
	}
	if o.signals != nil {
		a.shutdownOptions = append(a.shutdownOptions, shutdown.Signals(o.signals...))
	}
	return a, nil
}

func shutdownTimeout(cfg Config) time.Duration {
	if cfg.Shutdown.Timeout > 0 {
		return cfg.Shutdown.Timeout
	}
	return shutdown.DefaultTimeout
}

func newLocalHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Logging.Level}
	if cfg.Logging.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// Addr returns the address the HTTP server listens on.
func (a *App) Addr() net.Addr {
	return a.runtime.Addr()
}

// Registry returns the telemetry registry owned by the app.
func (a *App) Registry() *telemetry.Registry {
	return a.registry
}

// Run serves until a shutdown signal arrives or ctx is done. The HTTP
// server starts draining as soon as shutdown is triggered while the
// coordinator flushes telemetry. A failed or timed out flush is logged
// but does not fail Run.
func (a *App) Run(ctx context.Context) error {
	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()

	coordinator := shutdown.NewCoordinator(
		a.registry,
		append(a.shutdownOptions, shutdown.OnSignal(stopServing))...,
	)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.runtime.Run(serveCtx)
	})
	eg.Go(func() error {
		outcome, err := coordinator.Run(egctx)
		a.log.InfoContext(
			ctx,
			"shutdown complete",
			slogfield.String("outcome", outcome.String()),
			slogfield.String("state", coordinator.State().String()),
		)
		if errors.Is(err, shutdown.ErrAlreadyStarted) {
			return err
		}
		return nil
	})
	return eg.Wait()
}
