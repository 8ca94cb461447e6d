// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"fmt"
	"time"
)

// Supported values of [Config.Exporter].
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Supported values of [Config.Protocol].
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// Config describes how the providers are built.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Endpoint is the collector address, either host:port or a
	// http(s) URL. An https URL always uses TLS.
	Endpoint string
	Exporter string
	Protocol string
	Insecure bool

	Trace    TraceConfig
	Log      LogConfig
	Metric   MetricConfig
	Resource ResourceConfig
}

// TraceConfig controls the batch span processor.
type TraceConfig struct {
	BatchTimeout       time.Duration `config:"batchTimeout"`
	MaxExportBatchSize int           `config:"maxExportBatchSize"`
	MaxQueueSize       int           `config:"maxQueueSize"`
}

// LogConfig controls the batch log processor.
type LogConfig struct {
	ExportInterval time.Duration `config:"exportInterval"`
	MaxBatchSize   int           `config:"maxBatchSize"`
	MaxQueueSize   int           `config:"maxQueueSize"`
}

// MetricConfig controls the metric readers.
type MetricConfig struct {
	Interval time.Duration `config:"interval"`

	// Runtime enables Go runtime metrics.
	Runtime bool `config:"runtime"`

	// Prometheus adds a pull based reader served by
	// [telemetry.Providers.MetricsHandler].
	Prometheus bool `config:"prometheus"`
}

// ResourceConfig controls the attributes describing the service.
type ResourceConfig struct {
	DetectGCP  bool              `config:"detectGCP"`
	Attributes map[string]string `config:"attributes"`
}

func (cfg Config) withDefaults() Config {
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterOTLP
	}
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolGRPC
	}
	if cfg.Trace.BatchTimeout <= 0 {
		cfg.Trace.BatchTimeout = 2 * time.Second
	}
	if cfg.Trace.MaxExportBatchSize <= 0 {
		cfg.Trace.MaxExportBatchSize = 512
	}
	if cfg.Trace.MaxQueueSize <= 0 {
		cfg.Trace.MaxQueueSize = 2048
	}
	if cfg.Log.ExportInterval <= 0 {
		cfg.Log.ExportInterval = time.Second
	}
	if cfg.Log.MaxBatchSize <= 0 {
		cfg.Log.MaxBatchSize = 512
	}
	if cfg.Log.MaxQueueSize <= 0 {
		cfg.Log.MaxQueueSize = 2048
	}
	if cfg.Metric.Interval <= 0 {
		cfg.Metric.Interval = 5 * time.Second
	}
	return cfg
}

// InvalidEndpointError is returned when the collector endpoint
// cannot be parsed into a host and a port.
type InvalidEndpointError struct {
	Endpoint string
	Cause    error
}

// Error implements the [error] interface.
func (e InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid collector endpoint %q: %s", e.Endpoint, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidEndpointError) Unwrap() error {
	return e.Cause
}

// UnknownExporterError is returned for an unsupported [Config.Exporter].
type UnknownExporterError struct {
	Exporter string
}

// Error implements the [error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown exporter: %s", e.Exporter)
}

// UnknownProtocolError is returned for an unsupported [Config.Protocol].
type UnknownProtocolError struct {
	Protocol string
}

// Error implements the [error] interface.
func (e UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown otlp protocol: %s", e.Protocol)
}
