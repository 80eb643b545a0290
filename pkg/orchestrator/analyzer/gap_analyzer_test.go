package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/analyzer"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordStore serves canned per-stage counts and records the queries made.
type fakeRecordStore struct {
	counts    map[model.Stage]map[string]model.StageCounts
	failStage model.Stage
	queries   []model.Stage
}

func (f *fakeRecordStore) StageCounts(_ context.Context, stage model.Stage, countyID string) (map[string]model.StageCounts, error) {
	f.queries = append(f.queries, stage)
	if stage == f.failStage {
		return nil, errors.New("connection reset")
	}
	result := make(map[string]model.StageCounts)
	for county, c := range f.counts[stage] {
		if countyID == "" || county == countyID {
			result[county] = c
		}
	}
	return result, nil
}

func (f *fakeRecordStore) CountEligible(_ context.Context, stage model.Stage, _ string) (int, error) {
	total := 0
	for _, c := range f.counts[stage] {
		total += c.Eligible
	}
	return total, nil
}

func (f *fakeRecordStore) CountDone(_ context.Context, stage model.Stage, _ string) (int, error) {
	total := 0
	for _, c := range f.counts[stage] {
		total += c.Done
	}
	return total, nil
}

func TestGapAnalyzer_Analyze(t *testing.T) {
	store := &fakeRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageParse: {
			"county-a": {Eligible: 100, Done: 100},
			"county-b": {Eligible: 40, Done: 10},
		},
		model.StageEnrich: {
			"county-a": {Eligible: 100, Done: 60},
		},
	}}
	a := analyzer.NewGapAnalyzer(store)

	gaps, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, gaps, 3)
	assert.Equal(t, 30, gaps[model.StageKey{CountyID: "county-b", Stage: model.StageParse}].Backlog())
	assert.Equal(t, 40, gaps[model.StageKey{CountyID: "county-a", Stage: model.StageEnrich}].Backlog())
	assert.Equal(t, 0, gaps[model.StageKey{CountyID: "county-a", Stage: model.StageParse}].Backlog())

	// one query per stage, in pipeline order, regardless of county count
	assert.Equal(t, model.AllStages(), store.queries)
}

func TestGapAnalyzer_Analyze_CountyScoped(t *testing.T) {
	store := &fakeRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageParse: {
			"county-a": {Eligible: 10, Done: 0},
			"county-b": {Eligible: 20, Done: 0},
		},
	}}
	a := analyzer.NewGapAnalyzer(store)

	gaps, err := a.Analyze(context.Background(), "county-b")
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 20, gaps[model.StageKey{CountyID: "county-b", Stage: model.StageParse}].Eligible)
}

func TestGapAnalyzer_Analyze_ReadFailureFailsTheCycle(t *testing.T) {
	store := &fakeRecordStore{
		counts: map[model.Stage]map[string]model.StageCounts{
			model.StageParse: {"county-a": {Eligible: 10, Done: 0}},
		},
		failStage: model.StageEnrich,
	}
	a := analyzer.NewGapAnalyzer(store)

	gaps, err := a.Analyze(context.Background(), "")
	assert.Nil(t, gaps, "a partial picture is worse than none")
	require.Error(t, err)
	assert.Equal(t, exception.KindInternal, exception.KindOf(err))
}
