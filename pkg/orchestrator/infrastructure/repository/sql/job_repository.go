// Package sql provides the gorm-backed implementations of the orchestrator's
// repositories.
package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const jobRepoModule = "sql_job_repository"

// defaultListLimit caps listings when the caller sets no limit; the backlog
// can be very large and an uncapped listing must never reach the database.
const defaultListLimit = 100

// JobRepository is the gorm-backed implementation of repository.JobRepository.
type JobRepository struct {
	db *gorm.DB
}

// Verify that JobRepository implements the repository.JobRepository interface.
var _ repository.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new gorm-backed JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// SaveJob persists a newly created job.
func (r *JobRepository) SaveJob(ctx context.Context, job *model.BatchJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return exception.Wrap(jobRepoModule, exception.KindInternal, "failed to insert job", err)
	}
	return nil
}

// jobMutableColumns lists every column the state machine may change. Updates
// go through an explicit column list so cleared fields (paused_at after a
// resume, for one) are written as NULL instead of being skipped as gorm does
// for zero-valued struct fields.
var jobMutableColumns = []string{
	"status", "processed_items", "failed_items", "current_batch",
	"last_error", "error_count", "started_at", "paused_at", "completed_at",
	"updated_at",
}

// UpdateJob persists the current state of an existing job.
func (r *JobRepository) UpdateJob(ctx context.Context, job *model.BatchJob) error {
	result := r.db.WithContext(ctx).Model(&model.BatchJob{}).Where("id = ?", job.ID).
		Select(jobMutableColumns).Updates(job)
	if result.Error != nil {
		return exception.Wrap(jobRepoModule, exception.KindInternal, "failed to update job", result.Error)
	}
	if result.RowsAffected == 0 {
		return exception.Newf(jobRepoModule, exception.KindNotFound, "job %s not found", job.ID)
	}
	return nil
}

// FindJobByID returns the job with the given id, or a KindNotFound error.
func (r *JobRepository) FindJobByID(ctx context.Context, id string) (*model.BatchJob, error) {
	var job model.BatchJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.Newf(jobRepoModule, exception.KindNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, exception.Wrap(jobRepoModule, exception.KindInternal, "failed to load job", err)
	}
	return &job, nil
}

// ListJobs returns jobs matching the filter, newest first, id as tiebreaker.
func (r *JobRepository) ListJobs(ctx context.Context, filter repository.JobFilter) ([]*model.BatchJob, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := r.db.WithContext(ctx).Model(&model.BatchJob{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CountyID != "" {
		query = query.Where("county_id = ?", filter.CountyID)
	}
	var jobs []*model.BatchJob
	err := query.Order("created_at DESC").Order("id ASC").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, exception.Wrap(jobRepoModule, exception.KindInternal, "failed to list jobs", err)
	}
	return jobs, nil
}

// ListRunningUpdatedBefore returns running jobs with no writes since cutoff.
func (r *JobRepository) ListRunningUpdatedBefore(ctx context.Context, cutoff time.Time) ([]*model.BatchJob, error) {
	var jobs []*model.BatchJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, cutoff).
		Order("updated_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, exception.Wrap(jobRepoModule, exception.KindInternal, "failed to list stale jobs", err)
	}
	return jobs, nil
}
