package metrics

import (
	"context"
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// NoopRecorder is a MetricRecorder that discards everything.
type NoopRecorder struct{}

// NewNoopRecorder creates a new NoopRecorder.
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPlanningCycle(context.Context, time.Duration, int)          {}
func (n *NoopRecorder) RecordQueueDepth(context.Context, model.Stage, int)               {}
func (n *NoopRecorder) RecordBottleneck(context.Context, model.Bottleneck)               {}
func (n *NoopRecorder) RecordJobTransition(context.Context, model.JobType, model.JobStatus) {}
func (n *NoopRecorder) RecordAssignmentProgress(context.Context, model.JobType, int, int)   {}
func (n *NoopRecorder) RecordSessionEnd(context.Context, model.SessionStatus, int, int)     {}

// NoopTracer is a Tracer that produces inert spans.
type NoopTracer struct{}

// NewNoopTracer creates a new NoopTracer.
func NewNoopTracer() *NoopTracer { return &NoopTracer{} }

// StartSpan returns the context unchanged with an inert span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()              {}
func (noopSpan) RecordError(error) {}
