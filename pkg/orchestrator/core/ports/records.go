// Package ports defines the orchestrator's boundary contracts with external
// collaborators: the property record store, the enrichment workers, and the
// county deadline feed. The orchestrator never interprets their internals;
// it only consumes the semantics fixed here.
package ports

import (
	"context"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// RecordStore is the read-only query boundary over the property database.
// It must reflect the latest committed state; no stale-read tolerance beyond
// the planning cycle's own cadence.
type RecordStore interface {
	// StageCounts returns, grouped by county, the eligible and done counts for
	// one pipeline stage. An empty countyID queries all counties in a single
	// grouped query; implementations must batch by stage rather than iterate
	// per county. Counties with zero eligible records are simply absent.
	StageCounts(ctx context.Context, stage model.Stage, countyID string) (map[string]model.StageCounts, error)
	// CountEligible returns the number of records qualifying for the stage,
	// county-scoped when countyID is non-empty, global otherwise.
	CountEligible(ctx context.Context, stage model.Stage, countyID string) (int, error)
	// CountDone returns the number of records bearing the stage's completion
	// marker, county-scoped when countyID is non-empty, global otherwise.
	CountDone(ctx context.Context, stage model.Stage, countyID string) (int, error)
}
