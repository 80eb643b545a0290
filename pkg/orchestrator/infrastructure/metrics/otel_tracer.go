package metrics

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	metrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const tracerModule = "otel_tracer"

// OpenTelemetryTracer is an implementation of metrics.Tracer backed by an
// OTLP trace exporter. With the exporter configured as "none" it degrades to
// the no-op tracer instead of failing startup.
type OpenTelemetryTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// Verify that OpenTelemetryTracer implements the metrics.Tracer interface.
var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

// NewTracer builds the configured Tracer: an OTLP-backed one for "grpc" and
// "http" exporters, the no-op tracer for "none".
func NewTracer(cfg *config.Config) (metrics.Tracer, error) {
	ctx := context.Background()
	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Tracing.Exporter {
	case "", "none":
		return metrics.NewNoopTracer(), nil
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Tracing.Endpoint)}
		if cfg.Tracing.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint)}
		if cfg.Tracing.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, exception.Newf(tracerModule, exception.KindInvalidInput,
			"unsupported trace exporter %q", cfg.Tracing.Exporter)
	}
	if err != nil {
		return nil, exception.Wrap(tracerModule, exception.KindInternal, "failed to initialize OTLP exporter", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.Tracing.ServiceName),
	))
	if err != nil {
		return nil, exception.Wrap(tracerModule, exception.KindInternal, "failed to build trace resource", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	logger.Infof("OTLP trace exporter enabled (%s, endpoint %s)", cfg.Tracing.Exporter, cfg.Tracing.Endpoint)
	return &OpenTelemetryTracer{
		provider: provider,
		tracer:   provider.Tracer("orchestrator"),
	}, nil
}

// StartSpan starts a span with the given name.
func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string) (context.Context, metrics.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

// Shutdown flushes and stops the tracer provider.
func (t *OpenTelemetryTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
