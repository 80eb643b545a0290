// Package metrics defines the abstract observability interfaces of the
// orchestrator. Concrete backends (Prometheus, OpenTelemetry) live under
// infrastructure/metrics; a no-op implementation is provided for tests and
// disabled configurations.
package metrics

import (
	"context"
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// MetricRecorder records metrics for planning cycles, job lifecycle events
// and assignment progress. Implementations must be safe for concurrent use.
type MetricRecorder interface {
	// RecordPlanningCycle records one completed planning cycle.
	RecordPlanningCycle(ctx context.Context, duration time.Duration, queueLength int)
	// RecordQueueDepth records the current backlog for one stage.
	RecordQueueDepth(ctx context.Context, stage model.Stage, depth int)
	// RecordBottleneck records the current bottleneck state for one stage.
	RecordBottleneck(ctx context.Context, b model.Bottleneck)
	// RecordJobTransition records a job entering a new status.
	RecordJobTransition(ctx context.Context, jobType model.JobType, status model.JobStatus)
	// RecordAssignmentProgress records newly processed/failed items for an assignment.
	RecordAssignmentProgress(ctx context.Context, jobType model.JobType, deltaProcessed, deltaFailed int)
	// RecordSessionEnd records a session reaching a terminal state.
	RecordSessionEnd(ctx context.Context, status model.SessionStatus, processed, failed int)
}

// Span represents a single traced operation.
type Span interface {
	// End finishes the span.
	End()
	// RecordError notes a failure on the span.
	RecordError(err error)
}

// Tracer starts spans around orchestrator operations.
type Tracer interface {
	// StartSpan starts a span with the given name and returns the derived context.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}
