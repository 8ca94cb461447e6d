// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package california runs a small HTTP service whose interesting part is
// the lifecycle of its OpenTelemetry pipeline: building the trace, log and
// metric providers, correlating every request with the active trace and
// tearing everything down in bounded time.
//
// The package itself only provides the config, build and run pipeline:
//
//	b := california.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (california.App, error) {
//		return newApp(ctx, cfg)
//	})
//	err := california.Run(ctx, b, config.FromYaml(r))
//
// The telemetry subsystem lives in the otel, telemetry, metrics, shutdown
// and http/httpinstrument packages.
package california
