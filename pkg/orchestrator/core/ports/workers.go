package ports

import (
	"context"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// WorkerHandle is the opaque identifier of one started worker task. The
// orchestrator never assumes any particular worker implementation; progress
// callbacks are keyed by this handle.
type WorkerHandle string

// WorkerInvoker starts external enrichment workers. Fire-and-track: the call
// returns as soon as the worker has accepted the work, and the orchestrator
// receives progress through the assignment tracker, never by blocking here.
type WorkerInvoker interface {
	// StartWork asks a worker to process up to items properties of one county
	// at one stage, in batches of batchSize.
	StartWork(ctx context.Context, jobType model.JobType, countyID string, batchSize, items int) (WorkerHandle, error)
}
