package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/analyzer"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/bottleneck"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/planner"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/queue"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// CycleResult is the output of one planning cycle. It is an immutable
// snapshot: the status surface serves the cached latest result and never
// triggers a cycle of its own.
type CycleResult struct {
	Gaps        map[model.StageKey]model.StageCounts `json:"-"`
	Queue       []model.WorkQueueItem                `json:"queue"`
	Plan        model.SessionPlan                    `json:"plan"`
	Bottlenecks []model.Bottleneck                   `json:"bottlenecks"`
	GeneratedAt time.Time                            `json:"generated_at"`
}

// PlanningService runs the read-only planning pipeline: gap analysis, queue
// building, session planning and bottleneck detection. None of its steps
// mutate the job store; a failure anywhere fails the whole cycle rather than
// emit an incomplete queue or plan.
type PlanningService struct {
	analyzer *analyzer.GapAnalyzer
	builder  *queue.Builder
	planner  *planner.Planner
	detector *bottleneck.Detector
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer

	mu     sync.RWMutex
	latest *CycleResult
}

// NewPlanningService creates a PlanningService over the four planning components.
func NewPlanningService(
	gapAnalyzer *analyzer.GapAnalyzer,
	builder *queue.Builder,
	sessionPlanner *planner.Planner,
	detector *bottleneck.Detector,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *PlanningService {
	return &PlanningService{
		analyzer: gapAnalyzer,
		builder:  builder,
		planner:  sessionPlanner,
		detector: detector,
		recorder: recorder,
		tracer:   tracer,
	}
}

// RunCycle executes one planning cycle over the current record store counts
// and caches the result for the status surface. An empty countyID plans
// across all counties.
func (s *PlanningService) RunCycle(ctx context.Context, countyID string) (*CycleResult, error) {
	ctx, span := s.tracer.StartSpan(ctx, "planning.cycle")
	defer span.End()
	started := time.Now()

	gaps, err := s.analyzer.Analyze(ctx, countyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	workQueue, err := s.builder.Build(ctx, gaps)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	plan := s.planner.Plan(workQueue)
	bottlenecks, err := s.detector.Detect(ctx, gaps)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &CycleResult{
		Gaps:        gaps,
		Queue:       workQueue,
		Plan:        plan,
		Bottlenecks: bottlenecks,
		GeneratedAt: started,
	}
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	s.recorder.RecordPlanningCycle(ctx, time.Since(started), len(workQueue))
	s.recordDepths(ctx, workQueue, bottlenecks)
	logger.Infof("Planning cycle complete in %s: %d queue items, %d selected, %d bottlenecks",
		time.Since(started).Round(time.Millisecond), len(workQueue), len(plan.SelectedWork), len(bottlenecks))
	return result, nil
}

// Latest returns the most recent cycle result, or nil before the first cycle.
func (s *PlanningService) Latest() *CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *PlanningService) recordDepths(ctx context.Context, workQueue []model.WorkQueueItem, bottlenecks []model.Bottleneck) {
	depths := make(map[model.Stage]int)
	for _, item := range workQueue {
		depths[item.Stage] += item.ItemsTotal
	}
	for _, stage := range model.AllStages() {
		s.recorder.RecordQueueDepth(ctx, stage, depths[stage])
	}
	for _, b := range bottlenecks {
		s.recorder.RecordBottleneck(ctx, b)
	}
}
