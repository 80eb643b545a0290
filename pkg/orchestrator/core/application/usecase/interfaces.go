package usecase

import (
	"context"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
)

// JobOperator is the single write path into the batch job store. Every
// mutation of a BatchJob, whether from the HTTP surface or the assignment
// tracker, passes through here so the state machine and counter invariants
// are enforced in exactly one place.
type JobOperator interface {
	// CreateJob creates a pending job for a county and job type.
	CreateJob(ctx context.Context, jobType model.JobType, countyID string, batchSize, totalItems int) (*model.BatchJob, error)

	// TransitionJob moves a job to the target status under the state machine's
	// transition table.
	TransitionJob(ctx context.Context, jobID string, target model.JobStatus) (*model.BatchJob, error)

	// RecordProgress applies a progress delta computed by the assignment tracker.
	RecordProgress(ctx context.Context, jobID string, deltaProcessed, deltaFailed, currentBatch int) (*model.BatchJob, error)

	// PatchProgress applies an absolute progress snapshot. Retried patches are
	// idempotent: a stale snapshot returns the unchanged job with no error.
	PatchProgress(ctx context.Context, jobID string, processed, failed, currentBatch int) (*model.BatchJob, error)

	// RecordJobError notes a worker-reported error on a job.
	RecordJobError(ctx context.Context, jobID string, message string) (*model.BatchJob, error)

	// GetJob returns one job by id.
	GetJob(ctx context.Context, jobID string) (*model.BatchJob, error)

	// ListJobs lists jobs under the usual cap and deterministic order.
	ListJobs(ctx context.Context, filter repository.JobFilter) ([]*model.BatchJob, error)
}
