package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	metrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

// Module is an Fx module that provides the configured MetricRecorder and Tracer.
var Module = fx.Options(
	// The concrete recorder stays available for the /metrics handler even
	// when metrics are pushed over OTLP.
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewRecorder),
	fx.Provide(NewTracer),

	// Flush telemetry on shutdown when an OTLP backend is active.
	fx.Invoke(func(lc fx.Lifecycle, tracer metrics.Tracer, recorder metrics.MetricRecorder) {
		if otelTracer, ok := tracer.(*OpenTelemetryTracer); ok {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return otelTracer.Shutdown(ctx) },
			})
		}
		if otlp, ok := recorder.(*OTLPRecorder); ok {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return otlp.Shutdown(ctx) },
			})
		}
	}),
)

// NewRecorder selects the MetricRecorder backend from configuration.
func NewRecorder(cfg *config.Config, prom *PrometheusRecorder) (metrics.MetricRecorder, error) {
	switch cfg.Metrics.Exporter {
	case "", "prometheus":
		return prom, nil
	case "none":
		return metrics.NewNoopRecorder(), nil
	case "grpc", "http":
		return NewOTLPRecorder(cfg)
	default:
		return nil, exception.Newf(recorderModule, exception.KindInvalidInput,
			"unsupported metric exporter %q", cfg.Metrics.Exporter)
	}
}
