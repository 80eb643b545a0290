// Package repository defines the persistence interfaces for the orchestrator's
// durable entities. Implementations live under infrastructure/repository.
package repository

import (
	"context"
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// JobFilter narrows and caps a job listing. The backlog can be very large, so
// every listing is capped and sorted deterministically (created_at descending,
// then id ascending).
type JobFilter struct {
	// Status filters by job status when non-empty.
	Status model.JobStatus
	// CountyID filters by county when non-empty.
	CountyID string
	// Limit caps the result size; implementations apply a default cap when zero.
	Limit int
}

// JobRepository is the durable record of BatchJob entities; the single source
// of truth for what has been done.
type JobRepository interface {
	// SaveJob persists a newly created job.
	SaveJob(ctx context.Context, job *model.BatchJob) error
	// UpdateJob persists the current state of an existing job.
	UpdateJob(ctx context.Context, job *model.BatchJob) error
	// FindJobByID returns the job with the given id, or a KindNotFound error.
	FindJobByID(ctx context.Context, id string) (*model.BatchJob, error)
	// ListJobs returns jobs matching the filter, capped and deterministically ordered.
	ListJobs(ctx context.Context, filter JobFilter) ([]*model.BatchJob, error)
	// ListRunningUpdatedBefore returns running jobs whose updated_at is older
	// than the cutoff, for operator review. Stale jobs are flagged, never
	// auto-failed.
	ListRunningUpdatedBefore(ctx context.Context, cutoff time.Time) ([]*model.BatchJob, error)
}
