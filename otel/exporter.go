// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type exporterFactory interface {
	spanExporter(context.Context) (sdktrace.SpanExporter, error)
	metricExporter(context.Context) (sdkmetric.Exporter, error)
	logExporter(context.Context) (sdklog.Exporter, error)
}

type collectorEndpoint struct {
	hostport string
	insecure bool
}

var (
	errMissingHost = errors.New("missing host")
	errInvalidPort = errors.New("port must be a number between 1 and 65535")
	errBadScheme   = errors.New("scheme must be http or https")
)

// parseEndpoint accepts host:port or http(s)://host:port.
func parseEndpoint(raw string, insecure bool) (collectorEndpoint, error) {
	hostport := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		switch u.Scheme {
		case "http":
		case "https":
			insecure = false
		default:
			return collectorEndpoint{}, InvalidEndpointError{Endpoint: raw, Cause: errBadScheme}
		}
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return collectorEndpoint{}, InvalidEndpointError{Endpoint: raw, Cause: err}
	}
	if host == "" {
		return collectorEndpoint{}, InvalidEndpointError{Endpoint: raw, Cause: errMissingHost}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return collectorEndpoint{}, InvalidEndpointError{Endpoint: raw, Cause: errInvalidPort}
	}
	return collectorEndpoint{hostport: hostport, insecure: insecure}, nil
}

// grpcExporters share a single lazily connecting client connection.
type grpcExporters struct {
	conn *grpc.ClientConn
}

func newGRPCExporters(ep collectorEndpoint) (*grpcExporters, error) {
	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if ep.insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(ep.hostport, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	return &grpcExporters{conn: conn}, nil
}

func (e *grpcExporters) spanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(e.conn))
}

func (e *grpcExporters) metricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(e.conn))
}

func (e *grpcExporters) logExporter(ctx context.Context) (sdklog.Exporter, error) {
	return otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(e.conn))
}

type httpExporters struct {
	endpoint collectorEndpoint
}

func (e httpExporters) spanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(e.endpoint.hostport)}
	if e.endpoint.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func (e httpExporters) metricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(e.endpoint.hostport)}
	if e.endpoint.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func (e httpExporters) logExporter(ctx context.Context) (sdklog.Exporter, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(e.endpoint.hostport)}
	if e.endpoint.insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	return otlploghttp.New(ctx, opts...)
}

type stdoutExporters struct {
	w io.Writer
}

func (e stdoutExporters) spanExporter(context.Context) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(e.w))
}

func (e stdoutExporters) metricExporter(context.Context) (sdkmetric.Exporter, error) {
	return stdoutmetric.New(stdoutmetric.WithWriter(e.w))
}

func (e stdoutExporters) logExporter(context.Context) (sdklog.Exporter, error) {
	return stdoutlog.New(stdoutlog.WithWriter(e.w))
}

// lockedWriter serializes writes from the three stdout exporters,
// which export from independent goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(b []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(b)
}
