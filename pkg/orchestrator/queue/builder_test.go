package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeadlineFeed serves a fixed deadline map, optionally failing.
type fakeDeadlineFeed struct {
	deadlines map[string]time.Time
	err       error
}

func (f *fakeDeadlineFeed) NextDeadline(_ context.Context, countyID string) (*time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.deadlines[countyID]; ok {
		return &d, nil
	}
	return nil, nil
}

func (f *fakeDeadlineFeed) UpcomingDeadlines(context.Context) (map[string]time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.deadlines, nil
}

func TestBuilder_Build_Ordering(t *testing.T) {
	cfg := config.NewConfig()
	builder := queue.NewBuilder(cfg, &fakeDeadlineFeed{})

	gaps := map[model.StageKey]model.StageCounts{
		{CountyID: "county-b", Stage: model.StageEnrich}:   {Eligible: 100, Done: 40},
		{CountyID: "county-a", Stage: model.StageEnrich}:   {Eligible: 100, Done: 40},
		{CountyID: "county-c", Stage: model.StageParse}:    {Eligible: 30, Done: 0},
		{CountyID: "county-a", Stage: model.StageValidate}: {Eligible: 500, Done: 100},
		{CountyID: "county-d", Stage: model.StageEnrich}:   {Eligible: 200, Done: 10},
		{CountyID: "county-e", Stage: model.StageApprove}:  {Eligible: 10, Done: 10},
	}

	items, err := builder.Build(context.Background(), gaps)
	require.NoError(t, err)
	require.Len(t, items, 5, "zero-backlog entries produce no item")

	// parse before enrich before validate; within enrich, bigger backlog first,
	// then county id as tiebreaker
	assert.Equal(t, "county-c", items[0].CountyID)
	assert.Equal(t, model.StageParse, items[0].Stage)
	assert.Equal(t, "county-d", items[1].CountyID)
	assert.Equal(t, "county-a", items[2].CountyID)
	assert.Equal(t, "county-b", items[3].CountyID)
	assert.Equal(t, model.StageValidate, items[4].Stage)

	// same inputs, same queue
	again, err := builder.Build(context.Background(), gaps)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestBuilder_Build_UrgencyBoost(t *testing.T) {
	cfg := config.NewConfig()
	soon := time.Now().Add(5 * 24 * time.Hour)
	far := time.Now().Add(60 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)
	builder := queue.NewBuilder(cfg, &fakeDeadlineFeed{deadlines: map[string]time.Time{
		"county-soon": soon,
		"county-far":  far,
		"county-past": past,
	}})

	gaps := map[model.StageKey]model.StageCounts{
		{CountyID: "county-soon", Stage: model.StageEnrich}: {Eligible: 50, Done: 0},
		{CountyID: "county-far", Stage: model.StageEnrich}:  {Eligible: 50, Done: 0},
		{CountyID: "county-past", Stage: model.StageEnrich}: {Eligible: 50, Done: 0},
		{CountyID: "county-soon", Stage: model.StageParse}:  {Eligible: 10, Done: 0},
	}

	items, err := builder.Build(context.Background(), gaps)
	require.NoError(t, err)
	require.Len(t, items, 4)

	base := cfg.Queue.BasePriority(model.StageEnrich)
	byCounty := make(map[string]model.WorkQueueItem)
	for _, item := range items {
		if item.Stage == model.StageEnrich {
			byCounty[item.CountyID] = item
		}
	}
	assert.Equal(t, base-cfg.Queue.UrgencyBoost, byCounty["county-soon"].Priority)
	assert.Equal(t, base, byCounty["county-far"].Priority, "a deadline beyond the horizon earns no boost")
	assert.Equal(t, base, byCounty["county-past"].Priority, "a past deadline earns no boost")

	// the boost never lets an urgent enrich item overtake a parse item
	assert.Equal(t, model.StageParse, items[0].Stage)
	assert.Equal(t, "county-soon", items[1].CountyID)
}

func TestBuilder_Build_DeadlineFailureSkipsBoost(t *testing.T) {
	cfg := config.NewConfig()
	builder := queue.NewBuilder(cfg, &fakeDeadlineFeed{err: errors.New("sales table unavailable")})

	gaps := map[model.StageKey]model.StageCounts{
		{CountyID: "county-a", Stage: model.StageEnrich}: {Eligible: 50, Done: 0},
	}

	// the cycle survives; items carry their base priority
	items, err := builder.Build(context.Background(), gaps)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cfg.Queue.BasePriority(model.StageEnrich), items[0].Priority)
}

func TestBuilder_Build_ItemDerivation(t *testing.T) {
	cfg := config.NewConfig()
	builder := queue.NewBuilder(cfg, &fakeDeadlineFeed{})

	items, err := builder.Build(context.Background(), map[model.StageKey]model.StageCounts{
		{CountyID: "county-a", Stage: model.StageValidate}: {Eligible: 47, Done: 0},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, model.JobTypeScreenshotValidation, item.JobType)
	assert.Equal(t, 47, item.ItemsTotal)
	assert.Equal(t, cfg.Queue.BatchSize(model.StageValidate), item.BatchSize)
	assert.Equal(t, 5, item.EstimatedBatches)
}
