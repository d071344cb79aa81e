// Package telemetry wires optional OTLP trace export. When disabled (the
// default for interactive use) the global otel providers stay no-ops and
// instrumented packages cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config configures trace export.
type Config struct {
	// Enable turns on OTLP/HTTP trace export.
	Enable bool

	// Endpoint is the collector host:port (scheme optional, stripped).
	// Empty uses the exporter default (localhost:4318).
	Endpoint string

	// ServiceName identifies this process in traces.
	ServiceName string
}

// Setup installs the global tracer provider and returns a shutdown
// function. When cfg is nil or disabled, setup is a no-op and the returned
// shutdown does nothing.
func Setup(ctx context.Context, cfg *Config) (func(context.Context) error, error) {
	if cfg == nil || !cfg.Enable {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agentchat"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint)))
		if strings.HasPrefix(cfg.Endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint
}
