// Package telemetry wires the optional OTLP trace exporter. Tracing is
// off unless an endpoint is configured; callers always get a usable
// tracer either way.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/oculairmedia/context-gateway/internal/config"
)

// Span names emitted by the webhook pipeline.
const (
	SpanWebhook       = "gateway.webhook"
	SpanEnrich        = "gateway.enrich"
	SpanBlockWrite    = "gateway.block.write"
	SpanToolSelect    = "gateway.tools.select"
	SpanToolInventory = "gateway.tools.inventory"
)

// Attribute keys shared across spans.
const (
	AttrAgentID    = "gateway.agent_id"
	AttrEventType  = "gateway.event_type"
	AttrRequestID  = "gateway.request_id"
	AttrBlockLabel = "gateway.block_label"
)

// Provider owns the tracer lifecycle.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider builds the tracer. An empty OTLP endpoint yields a no-op
// tracer with no background exporter.
func NewProvider(ctx context.Context, cfg config.TracingConfig) (*Provider, error) {
	if cfg.OTLPEndpoint == "" {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("context-gateway")}, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "context-gateway"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer("context-gateway"),
	}, nil
}

// Start opens a span under the provider's tracer.
func (p *Provider) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans. Safe on a no-op provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
