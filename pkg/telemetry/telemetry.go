// Package telemetry installs the OpenTelemetry tracer provider used by the
// backend client and exports spans to an OTLP collector.
package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies paperdesk spans in the collector
const ServiceName = "paperdesk"

// Config holds tracer provider settings
type Config struct {
	Endpoint    string // OTLP gRPC collector, host:port
	Environment string
	Version     string
	SampleRatio float64
	Enabled     bool
	Insecure    bool
}

// Provider owns the SDK tracer provider and its exporter
type Provider struct {
	tp  *sdktrace.TracerProvider
	log zerolog.Logger
}

// Setup builds the tracer provider and installs it globally along with the
// W3C trace context propagator. A disabled config yields a no-op provider.
func Setup(ctx context.Context, cfg Config, log zerolog.Logger) (*Provider, error) {
	log = log.With().Str("component", "telemetry").Logger()
	if !cfg.Enabled {
		log.Debug().Msg("Tracing disabled")
		return &Provider{log: log}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	p, err := NewProvider(ctx, cfg, log, sdktrace.WithBatcher(exporter))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("Tracing enabled")
	return p, nil
}

// NewProvider builds an SDK provider with the paperdesk resource and sampler.
// Callers supply the span processors; it is not installed globally.
func NewProvider(ctx context.Context, cfg Config, log zerolog.Logger, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts = append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	return &Provider{tp: sdktrace.NewTracerProvider(opts...), log: log}, nil
}

// TracerProvider returns the provider spans should be created from
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider()
	}
	return p.tp
}

// Shutdown flushes pending spans and closes the exporter. Safe on a nil or
// disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	p.log.Debug().Msg("Tracer provider shut down")
	return nil
}
