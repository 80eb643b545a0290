// Package planner selects a bounded slice of the work queue for one
// orchestration session.
package planner

import (
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// Planner packs work queue items into a session plan under two budgets:
// a total item budget and a concurrent worker budget (one worker per
// selected item).
type Planner struct {
	cfg *config.Config
}

// NewPlanner creates a Planner using the planner section of the given config.
func NewPlanner(cfg *config.Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan walks the queue in order and takes items greedily. A higher-priority
// item is never skipped in favor of a later one: when the remaining item
// budget cannot hold the next item in full, a trimmed copy takes whatever
// budget remains and selection stops. At most one item per (county, job type)
// pairing is taken, since a session runs at most one worker per pairing.
// The queue itself is never mutated.
func (p *Planner) Plan(queue []model.WorkQueueItem) model.SessionPlan {
	plan := model.SessionPlan{
		SelectedWork:         make([]model.WorkQueueItem, 0),
		MaxItems:             p.cfg.Planner.MaxItems,
		MaxConcurrentWorkers: p.cfg.Planner.MaxConcurrentWorkers,
	}

	type pairing struct {
		countyID string
		jobType  model.JobType
	}
	seen := make(map[pairing]bool)
	remaining := plan.MaxItems

	for _, item := range queue {
		if remaining <= 0 || len(plan.SelectedWork) >= plan.MaxConcurrentWorkers {
			break
		}
		key := pairing{countyID: item.CountyID, jobType: item.JobType}
		if seen[key] {
			continue
		}
		seen[key] = true

		take := item
		if item.ItemsTotal > remaining {
			take = item.Trim(remaining)
		}
		plan.SelectedWork = append(plan.SelectedWork, take)
		plan.TotalItemsSelected += take.ItemsTotal
		remaining -= take.ItemsTotal
	}

	plan.Recommended = len(plan.SelectedWork) > 0
	logger.Debugf("Session plan selected %d items across %d work units (budget %d, workers %d)",
		plan.TotalItemsSelected, len(plan.SelectedWork), plan.MaxItems, plan.MaxConcurrentWorkers)
	return plan
}
