package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/analyzer"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/bottleneck"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/inmemory"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/planner"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRecordStore serves a static per-stage picture of the property records.
type fixedRecordStore struct {
	counts map[model.Stage]map[string]model.StageCounts
	err    error
}

func (f *fixedRecordStore) StageCounts(_ context.Context, stage model.Stage, _ string) (map[string]model.StageCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.counts[stage], nil
}

func (f *fixedRecordStore) CountEligible(context.Context, model.Stage, string) (int, error) {
	return 0, nil
}

func (f *fixedRecordStore) CountDone(context.Context, model.Stage, string) (int, error) {
	return 0, nil
}

type emptyDeadlineFeed struct{}

func (emptyDeadlineFeed) NextDeadline(context.Context, string) (*time.Time, error) {
	return nil, nil
}

func (emptyDeadlineFeed) UpcomingDeadlines(context.Context) (map[string]time.Time, error) {
	return map[string]time.Time{}, nil
}

func newPlanningService(store *fixedRecordStore) *usecase.PlanningService {
	cfg := config.NewConfig()
	return usecase.NewPlanningService(
		analyzer.NewGapAnalyzer(store),
		queue.NewBuilder(cfg, emptyDeadlineFeed{}),
		planner.NewPlanner(cfg),
		bottleneck.NewDetector(cfg, inmemory.NewJobRepository()),
		metrics.NewNoopRecorder(),
		metrics.NewNoopTracer(),
	)
}

func TestPlanningService_RunCycle(t *testing.T) {
	store := &fixedRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageParse: {
			"county-a": {Eligible: 200, Done: 50},
		},
		model.StageEnrich: {
			"county-a": {Eligible: 50, Done: 20},
			"county-b": {Eligible: 80, Done: 0},
		},
	}}
	service := newPlanningService(store)

	assert.Nil(t, service.Latest(), "no cycle has run yet")

	result, err := service.RunCycle(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Queue, 3)
	assert.Equal(t, model.StageParse, result.Queue[0].Stage, "parse backlog leads the queue")
	assert.True(t, result.Plan.Recommended)
	assert.Equal(t, 200, result.Plan.TotalItemsSelected, "260 outstanding items clip at the 200-item budget")
	assert.NotEmpty(t, result.Bottlenecks)
	assert.False(t, result.GeneratedAt.IsZero())

	assert.Equal(t, result, service.Latest())
}

func TestPlanningService_RunCycle_FailureLeavesLatestIntact(t *testing.T) {
	store := &fixedRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageParse: {"county-a": {Eligible: 10, Done: 0}},
	}}
	service := newPlanningService(store)

	first, err := service.RunCycle(context.Background(), "")
	require.NoError(t, err)

	store.err = errors.New("records database down")
	_, err = service.RunCycle(context.Background(), "")
	require.Error(t, err)

	assert.Equal(t, first, service.Latest(), "a failed cycle must not clobber the last good snapshot")
}
