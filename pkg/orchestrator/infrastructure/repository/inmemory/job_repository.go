// Package inmemory provides map-backed repository implementations for tests
// and local development. They enforce the same not-found semantics as the
// gorm-backed repositories.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const jobRepoModule = "inmemory_job_repository"

const defaultListLimit = 100

// JobRepository is an in-memory implementation of repository.JobRepository.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]model.BatchJob
}

// Verify that JobRepository implements the repository.JobRepository interface.
var _ repository.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates an empty in-memory JobRepository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]model.BatchJob)}
}

// SaveJob persists a newly created job.
func (r *JobRepository) SaveJob(_ context.Context, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

// UpdateJob persists the current state of an existing job.
func (r *JobRepository) UpdateJob(_ context.Context, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return exception.Newf(jobRepoModule, exception.KindNotFound, "job %s not found", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

// FindJobByID returns a copy of the job with the given id.
func (r *JobRepository) FindJobByID(_ context.Context, id string) (*model.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, exception.Newf(jobRepoModule, exception.KindNotFound, "job %s not found", id)
	}
	return &job, nil
}

// ListJobs returns jobs matching the filter, newest first, id as tiebreaker.
func (r *JobRepository) ListJobs(_ context.Context, filter repository.JobFilter) ([]*model.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	matched := make([]*model.BatchJob, 0)
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.CountyID != "" && job.CountyID != filter.CountyID {
			continue
		}
		j := job
		matched = append(matched, &j)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ListRunningUpdatedBefore returns running jobs with no writes since cutoff.
func (r *JobRepository) ListRunningUpdatedBefore(_ context.Context, cutoff time.Time) ([]*model.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stale := make([]*model.BatchJob, 0)
	for _, job := range r.jobs {
		if job.Status == model.JobStatusRunning && job.UpdatedAt.Before(cutoff) {
			j := job
			stale = append(stale, &j)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	return stale, nil
}
