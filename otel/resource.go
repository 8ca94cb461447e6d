// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// NewResource describes the running service instance. Every call
// generates a new service.instance.id.
//
// The configured service name wins over OTEL_SERVICE_NAME, which wins
// over the SDK style unknown_service:<executable> fallback. Configured
// attributes likewise override OTEL_RESOURCE_ATTRIBUTES.
//
// A partial result from resource detection is accepted.
func NewResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceInstanceID(uuid.NewString()),
	}
	if cfg.ServiceName != "" {
		attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	keys := make([]string, 0, len(cfg.Resource.Attributes))
	for k := range cfg.Resource.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, cfg.Resource.Attributes[k]))
	}

	opts := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(fallbackServiceName())),
		resource.WithFromEnv(),
		resource.WithAttributes(attrs...),
	}
	if cfg.Resource.DetectGCP {
		opts = append(opts, resource.WithDetectors(gcp.NewDetector()))
	}

	r, err := resource.New(ctx, opts...)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		return r, nil
	}
	return r, err
}

func fallbackServiceName() string {
	exe, err := os.Executable()
	if err != nil {
		return "unknown_service:go"
	}
	return "unknown_service:" + filepath.Base(exe)
}
