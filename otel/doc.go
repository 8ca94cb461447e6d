// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel builds the trace, metric and log providers for the service
// along with the [resource.Resource] describing it.
//
// Exporters are selected by [Config.Exporter] and [Config.Protocol]. OTLP
// exporters never dial the collector during [Build] so an unreachable
// collector only surfaces later as export failures.
package otel
