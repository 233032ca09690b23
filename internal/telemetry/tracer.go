// Package telemetry configures OpenTelemetry tracing.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// TracerOption customizes InitTracer.
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	writer  io.Writer
	version string
	env     string
}

// WithWriter sends exported spans to w instead of stdout.
func WithWriter(w io.Writer) TracerOption {
	return func(o *tracerOptions) { o.writer = w }
}

// WithServiceVersion tags spans with the build version.
func WithServiceVersion(v string) TracerOption {
	return func(o *tracerOptions) { o.version = v }
}

// WithEnvironment tags spans with the deployment environment (NODE_ENV).
func WithEnvironment(env string) TracerOption {
	return func(o *tracerOptions) { o.env = env }
}

// InitTracer installs a global tracer provider that exports spans as JSON to
// stdout. The otelhttp server middleware and the tracing event sink both use
// the global provider.
func InitTracer(serviceName string, logger *slog.Logger, opts ...TracerOption) (ShutdownFunc, error) {
	o := tracerOptions{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(o.writer))
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if o.version != "" {
		attrs = append(attrs, semconv.ServiceVersion(o.version))
	}
	if o.env != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(o.env))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry initialized", slog.String("service", serviceName))

	return tp.Shutdown, nil
}
