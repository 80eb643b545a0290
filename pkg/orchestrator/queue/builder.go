// Package queue turns stage completion gaps into a deterministic, prioritized
// list of work items. Priority is a base rank per pipeline stage, tightened
// for counties whose sale date falls inside the urgency horizon.
package queue

import (
	"context"
	"sort"
	"time"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// Builder assembles the work queue for a planning cycle.
type Builder struct {
	cfg       *config.Config
	deadlines ports.DeadlineFeed
	now       func() time.Time
}

// NewBuilder creates a Builder using the queue section of the given config.
func NewBuilder(cfg *config.Config, deadlines ports.DeadlineFeed) *Builder {
	return &Builder{cfg: cfg, deadlines: deadlines, now: time.Now}
}

// Build converts the analyzer's gap map into work queue items, one per
// (county, stage) pair with a positive backlog, ordered by effective
// priority ascending (lower value runs first), then backlog size descending,
// then county ID ascending. The ordering has no random component, so two
// cycles over identical inputs produce identical queues.
//
// The urgency boost is subtracted from the base priority when the county's
// next sale date falls within the configured horizon. The boost is validated
// at config load to be smaller than any gap between adjacent stage
// priorities, so an urgent county can never leapfrog an earlier stage.
func (b *Builder) Build(ctx context.Context, gaps map[model.StageKey]model.StageCounts) ([]model.WorkQueueItem, error) {
	horizon := b.cfg.Queue.UrgencyHorizon()
	deadlines := make(map[string]time.Time)
	if b.deadlines != nil {
		fetched, err := b.deadlines.UpcomingDeadlines(ctx)
		if err != nil {
			logger.Warnf("Deadline lookup failed: %v; urgency boost skipped this cycle", err)
		} else {
			deadlines = fetched
		}
	}

	items := make([]model.WorkQueueItem, 0, len(gaps))
	for key, counts := range gaps {
		backlog := counts.Backlog()
		if backlog <= 0 {
			continue
		}
		priority := b.cfg.Queue.BasePriority(key.Stage)
		if deadline, ok := deadlines[key.CountyID]; ok && b.withinHorizon(deadline, horizon) {
			priority -= b.cfg.Queue.UrgencyBoost
		}
		items = append(items, model.NewWorkQueueItem(
			key.CountyID,
			key.Stage,
			backlog,
			b.cfg.Queue.BatchSize(key.Stage),
			priority,
		))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		if items[i].ItemsTotal != items[j].ItemsTotal {
			return items[i].ItemsTotal > items[j].ItemsTotal
		}
		return items[i].CountyID < items[j].CountyID
	})

	logger.Debugf("Work queue built with %d items", len(items))
	return items, nil
}

// withinHorizon reports whether the deadline has not passed and falls within
// the urgency horizon measured from now.
func (b *Builder) withinHorizon(deadline time.Time, horizon time.Duration) bool {
	now := b.now()
	return !deadline.Before(now) && deadline.Sub(now) <= horizon
}
