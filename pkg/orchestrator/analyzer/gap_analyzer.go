// Package analyzer computes, per county and per pipeline stage, how many
// properties are eligible but not yet processed at that stage.
package analyzer

import (
	"context"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const moduleName = "gap_analyzer"

// GapAnalyzer derives stage completion gaps from the external record store.
// It is read-only and holds no state of its own; results are recomputed on
// every planning cycle to avoid staleness.
type GapAnalyzer struct {
	records ports.RecordStore
}

// NewGapAnalyzer creates a new GapAnalyzer over the given record store.
func NewGapAnalyzer(records ports.RecordStore) *GapAnalyzer {
	return &GapAnalyzer{records: records}
}

// Analyze returns the eligible/done counts for every (county, stage) pair
// with at least one eligible record. An empty countyID analyzes all counties.
// Queries are batched by stage, so the call completes in a fixed number of
// round trips regardless of county count. Counties with zero eligible records
// simply produce no entry; that is not an error. Any read failure fails the
// entire planning cycle rather than produce an incomplete picture.
func (a *GapAnalyzer) Analyze(ctx context.Context, countyID string) (map[model.StageKey]model.StageCounts, error) {
	gaps := make(map[model.StageKey]model.StageCounts)
	for _, stage := range model.AllStages() {
		counts, err := a.records.StageCounts(ctx, stage, countyID)
		if err != nil {
			return nil, exception.Wrap(moduleName, exception.KindInternal,
				"failed to count stage '"+stage.String()+"' completion", err)
		}
		for county, c := range counts {
			gaps[model.StageKey{CountyID: county, Stage: stage}] = c
		}
	}
	logger.Debugf("Gap analysis produced %d (county, stage) entries", len(gaps))
	return gaps, nil
}
