// Package usecase contains the orchestrator's application services: the job
// operator (the single write path into the job store), the planning service
// and the periodic scheduler that drives it.
package usecase

import (
	"context"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const operatorModule = "job_operator"

// DefaultJobOperator is the default implementation of the JobOperator
// interface. Failures are per-job: an invalid update on one job never blocks
// progress recording for unrelated jobs.
type DefaultJobOperator struct {
	jobRepository repository.JobRepository
	recorder      metrics.MetricRecorder
	cfg           *config.Config
}

// Verify that DefaultJobOperator implements the JobOperator interface.
var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator creates a new instance of DefaultJobOperator.
func NewDefaultJobOperator(jobRepository repository.JobRepository, recorder metrics.MetricRecorder, cfg *config.Config) *DefaultJobOperator {
	return &DefaultJobOperator{
		jobRepository: jobRepository,
		recorder:      recorder,
		cfg:           cfg,
	}
}

// CreateJob validates the inputs, derives total_batches and persists a new
// pending job. This is an implementation of the JobOperator interface.
func (o *DefaultJobOperator) CreateJob(ctx context.Context, jobType model.JobType, countyID string, batchSize, totalItems int) (*model.BatchJob, error) {
	job, err := model.NewBatchJob(jobType, countyID, batchSize, totalItems)
	if err != nil {
		return nil, err
	}
	if err := o.jobRepository.SaveJob(ctx, job); err != nil {
		return nil, exception.Wrap(operatorModule, exception.KindInternal, "failed to persist new job", err)
	}
	o.recorder.RecordJobTransition(ctx, job.JobType, job.Status)
	logger.Infof("Created %s job %s for county '%s' (%d items, %d batches)",
		job.JobType, job.ID, job.CountyID, job.TotalItems, job.TotalBatches)
	return job, nil
}

// TransitionJob moves a job to the target status. Disallowed moves fail with
// KindInvalidTransition and leave the stored row untouched.
func (o *DefaultJobOperator) TransitionJob(ctx context.Context, jobID string, target model.JobStatus) (*model.BatchJob, error) {
	job, err := o.jobRepository.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := o.jobRepository.UpdateJob(ctx, job); err != nil {
		return nil, exception.Wrap(operatorModule, exception.KindInternal, "failed to persist job transition", err)
	}
	o.recorder.RecordJobTransition(ctx, job.JobType, job.Status)
	logger.Infof("Job %s transitioned to %s", job.ID, job.Status)
	return job, nil
}

// RecordProgress applies a progress delta. Counter invariant violations fail
// with KindOutOfRange before anything is written.
func (o *DefaultJobOperator) RecordProgress(ctx context.Context, jobID string, deltaProcessed, deltaFailed, currentBatch int) (*model.BatchJob, error) {
	job, err := o.jobRepository.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.ApplyProgress(deltaProcessed, deltaFailed, currentBatch); err != nil {
		return nil, err
	}
	if err := o.jobRepository.UpdateJob(ctx, job); err != nil {
		return nil, exception.Wrap(operatorModule, exception.KindInternal, "failed to persist job progress", err)
	}
	logger.Debugf("Job %s progress: %d/%d processed, %d failed, batch %d/%d",
		job.ID, job.ProcessedItems, job.TotalItems, job.FailedItems, job.CurrentBatch, job.TotalBatches)
	return job, nil
}

// PatchProgress applies an absolute snapshot. A stale snapshot (at or below
// the recorded counters) is a duplicate of an already-applied report; it is
// logged and the unchanged job is returned, so retries are safe.
func (o *DefaultJobOperator) PatchProgress(ctx context.Context, jobID string, processed, failed, currentBatch int) (*model.BatchJob, error) {
	job, err := o.jobRepository.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.SetProgress(processed, failed, currentBatch); err != nil {
		if exception.IsStaleProgress(err) {
			logger.Warnf("Job %s: stale progress snapshot ignored: %v", job.ID, err)
			return job, nil
		}
		return nil, err
	}
	if err := o.jobRepository.UpdateJob(ctx, job); err != nil {
		return nil, exception.Wrap(operatorModule, exception.KindInternal, "failed to persist job progress", err)
	}
	return job, nil
}

// RecordJobError notes a worker-reported error on the job and persists it.
func (o *DefaultJobOperator) RecordJobError(ctx context.Context, jobID string, message string) (*model.BatchJob, error) {
	job, err := o.jobRepository.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.RecordError(message)
	if err := o.jobRepository.UpdateJob(ctx, job); err != nil {
		return nil, exception.Wrap(operatorModule, exception.KindInternal, "failed to persist job error", err)
	}
	if job.ErrorCount > o.cfg.Job.ErrorCeiling {
		logger.Warnf("Job %s has %d errors, above the ceiling of %d; last: %s",
			job.ID, job.ErrorCount, o.cfg.Job.ErrorCeiling, job.LastError)
	}
	return job, nil
}

// GetJob returns one job by id, or a KindNotFound error.
func (o *DefaultJobOperator) GetJob(ctx context.Context, jobID string) (*model.BatchJob, error) {
	return o.jobRepository.FindJobByID(ctx, jobID)
}

// ListJobs lists jobs matching the filter, capping the result at the
// configured limit when the caller does not set one.
func (o *DefaultJobOperator) ListJobs(ctx context.Context, filter repository.JobFilter) ([]*model.BatchJob, error) {
	if filter.Limit <= 0 || filter.Limit > o.cfg.Job.ListLimit {
		filter.Limit = o.cfg.Job.ListLimit
	}
	return o.jobRepository.ListJobs(ctx, filter)
}
