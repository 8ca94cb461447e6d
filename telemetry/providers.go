// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"net/http"
	"sync"

	"github.com/z5labs/california/lifecycle"

	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Providers is the set of signal providers owned by a running service.
type Providers struct {
	Tracer     *sdktrace.TracerProvider
	Meter      *sdkmetric.MeterProvider
	Logger     *sdklog.LoggerProvider
	Propagator propagation.TextMapPropagator

	// MetricsHandler serves a local scrape endpoint. It is nil
	// unless a pull based reader was configured.
	MetricsHandler http.Handler

	closers []lifecycle.Hook

	shutdownOnce sync.Once
	shutdownErr  error
}

// OnShutdown registers h to run after the providers have been shut down.
// Hooks run in registration order.
func (p *Providers) OnShutdown(h lifecycle.Hook) {
	p.closers = append(p.closers, h)
}

// Shutdown flushes and closes every provider concurrently, so a stuck
// provider does not keep the others from exporting, then runs the
// registered shutdown hooks once all providers have returned. Provider
// failures are wrapped in a [lifecycle.HookError] naming the provider.
// Only the first call does any work; later calls return the same result.
func (p *Providers) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		var providers []lifecycle.Hook
		if p.Tracer != nil {
			providers = append(providers, lifecycle.Named("tracer provider", lifecycle.HookFunc(p.Tracer.Shutdown)))
		}
		if p.Meter != nil {
			providers = append(providers, lifecycle.Named("meter provider", lifecycle.HookFunc(p.Meter.Shutdown)))
		}
		if p.Logger != nil {
			providers = append(providers, lifecycle.Named("logger provider", lifecycle.HookFunc(p.Logger.Shutdown)))
		}

		p.shutdownErr = lifecycle.MultiHook(
			lifecycle.Concurrent(providers...),
			lifecycle.MultiHook(p.closers...),
		).Run(ctx)
	})
	return p.shutdownErr
}
