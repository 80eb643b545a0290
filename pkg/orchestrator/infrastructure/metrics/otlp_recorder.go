package metrics

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	metrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const recorderModule = "otlp_recorder"

// OTLPRecorder is an OpenTelemetry implementation of the
// metrics.MetricRecorder interface, pushing over OTLP on a periodic reader.
type OTLPRecorder struct {
	provider *sdkmetric.MeterProvider

	cycleDuration     metric.Float64Histogram
	queueLength       metric.Int64Gauge
	queueDepth        metric.Int64Gauge
	bottleneckBacklog metric.Int64Gauge
	jobTransitions    metric.Int64Counter
	itemsProcessed    metric.Int64Counter
	itemsFailed       metric.Int64Counter
	sessions          metric.Int64Counter
}

// Verify that OTLPRecorder implements the metrics.MetricRecorder interface.
var _ metrics.MetricRecorder = (*OTLPRecorder)(nil)

// NewOTLPRecorder builds a MetricRecorder pushing over OTLP. The exporter is
// selected by metrics.exporter ("grpc" or "http").
func NewOTLPRecorder(cfg *config.Config) (*OTLPRecorder, error) {
	ctx := context.Background()
	var exporter sdkmetric.Exporter
	var err error
	switch cfg.Metrics.Exporter {
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Metrics.Endpoint)}
		if cfg.Metrics.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Metrics.Endpoint)}
		if cfg.Metrics.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, exception.Newf(recorderModule, exception.KindInvalidInput,
			"unsupported metric exporter %q", cfg.Metrics.Exporter)
	}
	if err != nil {
		return nil, exception.Wrap(recorderModule, exception.KindInternal, "failed to initialize OTLP metric exporter", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.Tracing.ServiceName),
	))
	if err != nil {
		return nil, exception.Wrap(recorderModule, exception.KindInternal, "failed to build metric resource", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(time.Duration(cfg.Metrics.IntervalSeconds)*time.Second))),
	)

	meter := provider.Meter("orchestrator")
	r := &OTLPRecorder{provider: provider}
	var errs *multierror.Error
	r.cycleDuration, err = meter.Float64Histogram("orchestrator.planning_cycle.duration",
		metric.WithUnit("s"), metric.WithDescription("Duration of planning cycles."))
	errs = multierror.Append(errs, err)
	r.queueLength, err = meter.Int64Gauge("orchestrator.work_queue.items",
		metric.WithDescription("Number of work queue items in the latest planning cycle."))
	errs = multierror.Append(errs, err)
	r.queueDepth, err = meter.Int64Gauge("orchestrator.stage.backlog",
		metric.WithDescription("Outstanding properties per pipeline stage."))
	errs = multierror.Append(errs, err)
	r.bottleneckBacklog, err = meter.Int64Gauge("orchestrator.bottleneck.backlog",
		metric.WithDescription("Backlog of stages currently classified as bottlenecks."))
	errs = multierror.Append(errs, err)
	r.jobTransitions, err = meter.Int64Counter("orchestrator.job.transitions",
		metric.WithDescription("Job status transitions by job type and target status."))
	errs = multierror.Append(errs, err)
	r.itemsProcessed, err = meter.Int64Counter("orchestrator.items.processed",
		metric.WithDescription("Properties processed by job type."))
	errs = multierror.Append(errs, err)
	r.itemsFailed, err = meter.Int64Counter("orchestrator.items.failed",
		metric.WithDescription("Properties failed by job type."))
	errs = multierror.Append(errs, err)
	r.sessions, err = meter.Int64Counter("orchestrator.sessions",
		metric.WithDescription("Sessions reaching a terminal state, by outcome."))
	errs = multierror.Append(errs, err)
	if err := errs.ErrorOrNil(); err != nil {
		return nil, exception.Wrap(recorderModule, exception.KindInternal, "failed to create metric instruments", err)
	}

	logger.Infof("OTLP metric exporter enabled (%s, endpoint %s)", cfg.Metrics.Exporter, cfg.Metrics.Endpoint)
	return r, nil
}

func (r *OTLPRecorder) RecordPlanningCycle(ctx context.Context, duration time.Duration, queueLength int) {
	r.cycleDuration.Record(ctx, duration.Seconds())
	r.queueLength.Record(ctx, int64(queueLength))
}

func (r *OTLPRecorder) RecordQueueDepth(ctx context.Context, stage model.Stage, depth int) {
	r.queueDepth.Record(ctx, int64(depth), metric.WithAttributes(attribute.String("stage", stage.String())))
}

func (r *OTLPRecorder) RecordBottleneck(ctx context.Context, b model.Bottleneck) {
	r.bottleneckBacklog.Record(ctx, int64(b.AffectedCount), metric.WithAttributes(
		attribute.String("stage", b.Stage.String()),
		attribute.String("severity", string(b.Severity)),
	))
}

func (r *OTLPRecorder) RecordJobTransition(ctx context.Context, jobType model.JobType, status model.JobStatus) {
	r.jobTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_type", jobType.String()),
		attribute.String("status", string(status)),
	))
}

func (r *OTLPRecorder) RecordAssignmentProgress(ctx context.Context, jobType model.JobType, deltaProcessed, deltaFailed int) {
	attrs := metric.WithAttributes(attribute.String("job_type", jobType.String()))
	if deltaProcessed > 0 {
		r.itemsProcessed.Add(ctx, int64(deltaProcessed), attrs)
	}
	if deltaFailed > 0 {
		r.itemsFailed.Add(ctx, int64(deltaFailed), attrs)
	}
}

func (r *OTLPRecorder) RecordSessionEnd(ctx context.Context, status model.SessionStatus, processed, failed int) {
	r.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

// Shutdown flushes pending metrics and stops the provider.
func (r *OTLPRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
