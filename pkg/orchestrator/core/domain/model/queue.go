package model

import "fmt"

// WorkQueueItem is a candidate unit of outstanding work for one county at one
// pipeline stage. The queue is regenerated in full on every planning cycle and
// never mutated in place; it is a pure function of the current stage counts
// and the priority table.
type WorkQueueItem struct {
	CountyID string `json:"county_id"`
	JobType  JobType `json:"job_type"`
	Stage    Stage   `json:"stage"`
	// ItemsTotal is the backlog (eligible - done) for this county/stage. Always positive.
	ItemsTotal int `json:"items_total"`
	// Reason is a human-readable justification generated from the backlog count and stage name.
	Reason string `json:"reason"`
	// BatchSize is the stage-specific default batch size.
	BatchSize        int `json:"batch_size"`
	EstimatedBatches int `json:"estimated_batches"`
	// Priority orders the queue; lower numbers are more urgent.
	Priority int `json:"priority"`
}

// NewWorkQueueItem builds a queue item for the given backlog, deriving the
// reason text and estimated batch count.
func NewWorkQueueItem(countyID string, stage Stage, backlog, batchSize, priority int) WorkQueueItem {
	return WorkQueueItem{
		CountyID:         countyID,
		JobType:          JobTypeForStage(stage),
		Stage:            stage,
		ItemsTotal:       backlog,
		Reason:           fmt.Sprintf("%d properties missing %s data", backlog, stage),
		BatchSize:        batchSize,
		EstimatedBatches: CeilDiv(backlog, batchSize),
		Priority:         priority,
	}
}

// Trim returns a copy of the item reduced to at most n items, with the
// estimated batch count recomputed. Trimming to the full size returns an
// unchanged copy.
func (w WorkQueueItem) Trim(n int) WorkQueueItem {
	trimmed := w
	if n < trimmed.ItemsTotal {
		trimmed.ItemsTotal = n
		trimmed.Reason = fmt.Sprintf("%d properties missing %s data", n, w.Stage)
	}
	trimmed.EstimatedBatches = CeilDiv(trimmed.ItemsTotal, trimmed.BatchSize)
	return trimmed
}

// SessionPlan is the bounded selection of WorkQueueItems chosen for one
// orchestration session.
type SessionPlan struct {
	// SelectedWork preserves the queue's priority order; later items may be
	// trimmed copies where a partial take was required to fit the budget.
	SelectedWork []WorkQueueItem `json:"selected_work"`
	MaxItems     int             `json:"max_items"`
	// MaxConcurrentWorkers bounds the number of selected items: one worker per
	// distinct (county, job_type) pairing per session.
	MaxConcurrentWorkers int `json:"max_concurrent_workers"`
	TotalItemsSelected   int `json:"total_items_selected"`
	// Recommended is true iff at least one item was selected.
	Recommended bool `json:"recommended"`
}
