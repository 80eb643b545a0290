// Package metrics provides the Prometheus and OpenTelemetry backends for the
// orchestrator's observability interfaces.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	metrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
)

// PrometheusRecorder is a Prometheus implementation of the
// metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	cycleDurationSeconds prometheus.Histogram
	queueLength          prometheus.Gauge
	queueDepth           *prometheus.GaugeVec
	bottleneckBacklog    *prometheus.GaugeVec
	jobStatusCounter     *prometheus.CounterVec
	itemsProcessed       *prometheus.CounterVec
	itemsFailed          *prometheus.CounterVec
	sessionCounter       *prometheus.CounterVec
}

// Verify that PrometheusRecorder implements the metrics.MetricRecorder interface.
var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its
// own registry, pre-registered with the Go runtime and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchestrator_planning_cycle_duration_seconds",
			Help:    "Duration of planning cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_work_queue_items",
			Help: "Number of work queue items in the latest planning cycle.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orchestrator_stage_backlog",
			Help: "Outstanding properties per pipeline stage.",
		}, []string{"stage"}),
		bottleneckBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orchestrator_bottleneck_backlog",
			Help: "Backlog of stages currently classified as bottlenecks.",
		}, []string{"stage", "severity"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_job_transitions_total",
			Help: "Total job status transitions by job type and target status.",
		}, []string{"job_type", "status"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_items_processed_total",
			Help: "Total properties processed by job type.",
		}, []string{"job_type"}),
		itemsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_items_failed_total",
			Help: "Total properties failed by job type.",
		}, []string{"job_type"}),
		sessionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_sessions_total",
			Help: "Total sessions reaching a terminal state, by outcome.",
		}, []string{"status"}),
	}

	registry.MustRegister(r.cycleDurationSeconds)
	registry.MustRegister(r.queueLength)
	registry.MustRegister(r.queueDepth)
	registry.MustRegister(r.bottleneckBacklog)
	registry.MustRegister(r.jobStatusCounter)
	registry.MustRegister(r.itemsProcessed)
	registry.MustRegister(r.itemsFailed)
	registry.MustRegister(r.sessionCounter)
	return r
}

// GetRegistry returns the Prometheus registry, for the /metrics handler.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordPlanningCycle records one completed planning cycle.
func (r *PrometheusRecorder) RecordPlanningCycle(_ context.Context, duration time.Duration, queueLength int) {
	r.cycleDurationSeconds.Observe(duration.Seconds())
	r.queueLength.Set(float64(queueLength))
}

// RecordQueueDepth records the current backlog for one stage.
func (r *PrometheusRecorder) RecordQueueDepth(_ context.Context, stage model.Stage, depth int) {
	r.queueDepth.WithLabelValues(stage.String()).Set(float64(depth))
}

// RecordBottleneck records the current bottleneck state for one stage.
func (r *PrometheusRecorder) RecordBottleneck(_ context.Context, b model.Bottleneck) {
	r.bottleneckBacklog.WithLabelValues(b.Stage.String(), string(b.Severity)).Set(float64(b.AffectedCount))
}

// RecordJobTransition records a job entering a new status.
func (r *PrometheusRecorder) RecordJobTransition(_ context.Context, jobType model.JobType, status model.JobStatus) {
	r.jobStatusCounter.WithLabelValues(jobType.String(), status.String()).Inc()
}

// RecordAssignmentProgress records newly processed/failed items for an assignment.
func (r *PrometheusRecorder) RecordAssignmentProgress(_ context.Context, jobType model.JobType, deltaProcessed, deltaFailed int) {
	if deltaProcessed > 0 {
		r.itemsProcessed.WithLabelValues(jobType.String()).Add(float64(deltaProcessed))
	}
	if deltaFailed > 0 {
		r.itemsFailed.WithLabelValues(jobType.String()).Add(float64(deltaFailed))
	}
}

// RecordSessionEnd records a session reaching a terminal state.
func (r *PrometheusRecorder) RecordSessionEnd(_ context.Context, status model.SessionStatus, _, _ int) {
	r.sessionCounter.WithLabelValues(string(status)).Inc()
}
