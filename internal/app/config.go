// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"log/slog"
	"time"

	"github.com/z5labs/california/otel"
)

// Config is the full service configuration.
type Config struct {
	Service struct {
		Name    string `config:"name"`
		Version string `config:"version"`
	} `config:"service"`

	HTTP struct {
		Addr              string        `config:"addr"`
		ReadTimeout       time.Duration `config:"readTimeout"`
		ReadHeaderTimeout time.Duration `config:"readHeaderTimeout"`
		WriteTimeout      time.Duration `config:"writeTimeout"`
		IdleTimeout       time.Duration `config:"idleTimeout"`
		ShutdownTimeout   time.Duration `config:"shutdownTimeout"`
	} `config:"http"`

	Logging struct {
		Level  slog.Level `config:"level"`
		Format string     `config:"format"`
	} `config:"logging"`

	OTel struct {
		Endpoint string              `config:"endpoint"`
		Exporter string              `config:"exporter"`
		Protocol string              `config:"protocol"`
		Insecure bool                `config:"insecure"`
		Trace    otel.TraceConfig    `config:"trace"`
		Log      otel.LogConfig      `config:"log"`
		Metric   otel.MetricConfig   `config:"metric"`
		Resource otel.ResourceConfig `config:"resource"`
	} `config:"otel"`

	Shutdown struct {
		Timeout time.Duration `config:"timeout"`
	} `config:"shutdown"`
}

// telemetryDisabled reports whether the service should run without
// exporting anything. Only the OTLP exporter needs an endpoint.
func (cfg Config) telemetryDisabled() bool {
	if cfg.OTel.Endpoint != "" {
		return false
	}
	return cfg.OTel.Exporter == "" || cfg.OTel.Exporter == otel.ExporterOTLP
}

func (cfg Config) otelConfig() otel.Config {
	return otel.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Endpoint:       cfg.OTel.Endpoint,
		Exporter:       cfg.OTel.Exporter,
		Protocol:       cfg.OTel.Protocol,
		Insecure:       cfg.OTel.Insecure,
		Trace:          cfg.OTel.Trace,
		Log:            cfg.OTel.Log,
		Metric:         cfg.OTel.Metric,
		Resource:       cfg.OTel.Resource,
	}
}
