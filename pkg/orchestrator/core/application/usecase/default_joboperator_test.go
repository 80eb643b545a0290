package usecase_test

import (
	"context"
	"testing"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/inmemory"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOperator(t *testing.T) (usecase.JobOperator, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	return usecase.NewDefaultJobOperator(inmemory.NewJobRepository(), metrics.NewNoopRecorder(), cfg), cfg
}

func TestDefaultJobOperator_CreateAndGet(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	job, err := operator.CreateJob(ctx, model.JobTypeDocumentParsing, "county-001", 100, 250)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.TotalBatches)

	found, err := operator.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	_, err = operator.GetJob(ctx, "no-such-job")
	assert.True(t, exception.IsNotFound(err))
}

func TestDefaultJobOperator_CreateJob_RejectsBeforePersisting(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	_, err := operator.CreateJob(ctx, model.JobTypeDocumentParsing, "county-001", 0, 250)
	assert.True(t, exception.IsInvalidInput(err))

	jobs, err := operator.ListJobs(ctx, repository.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs, "a rejected creation leaves no trace")
}

func TestDefaultJobOperator_TransitionJob(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	job, err := operator.CreateJob(ctx, model.JobTypeRegridEnrichment, "county-001", 25, 50)
	require.NoError(t, err)

	running, err := operator.TransitionJob(ctx, job.ID, model.JobStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, running.Status)
	assert.NotNil(t, running.StartedAt)

	// the rejected transition leaves the stored row untouched
	_, err = operator.TransitionJob(ctx, job.ID, model.JobStatusPending)
	assert.True(t, exception.IsInvalidTransition(err))
	stored, err := operator.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, stored.Status)
}

func TestDefaultJobOperator_RecordProgress(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	job, err := operator.CreateJob(ctx, model.JobTypeRegridEnrichment, "county-001", 25, 50)
	require.NoError(t, err)
	_, err = operator.TransitionJob(ctx, job.ID, model.JobStatusRunning)
	require.NoError(t, err)

	updated, err := operator.RecordProgress(ctx, job.ID, 25, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.ProcessedItems)

	_, err = operator.RecordProgress(ctx, job.ID, 30, 0, 2)
	assert.True(t, exception.IsOutOfRange(err), "55 of 50 items must be rejected")
	stored, err := operator.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.ProcessedItems)
}

func TestDefaultJobOperator_PatchProgress_StaleIsIdempotent(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	job, err := operator.CreateJob(ctx, model.JobTypeRegridEnrichment, "county-001", 25, 50)
	require.NoError(t, err)
	_, err = operator.TransitionJob(ctx, job.ID, model.JobStatusRunning)
	require.NoError(t, err)

	first, err := operator.PatchProgress(ctx, job.ID, 25, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 25, first.ProcessedItems)

	// a retried snapshot succeeds and changes nothing
	replayed, err := operator.PatchProgress(ctx, job.ID, 25, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 25, replayed.ProcessedItems)
	assert.Equal(t, 1, replayed.FailedItems)
	assert.Equal(t, 2, replayed.CurrentBatch)

	// an out-of-range snapshot is still a hard error
	_, err = operator.PatchProgress(ctx, job.ID, 60, 0, 2)
	assert.True(t, exception.IsOutOfRange(err))
}

func TestDefaultJobOperator_RecordJobError(t *testing.T) {
	operator, _ := newTestOperator(t)
	ctx := context.Background()

	job, err := operator.CreateJob(ctx, model.JobTypeScreenshotValidation, "county-001", 10, 30)
	require.NoError(t, err)

	updated, err := operator.RecordJobError(ctx, job.ID, "screenshot upload failed")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ErrorCount)
	assert.Equal(t, "screenshot upload failed", updated.LastError)
}

func TestDefaultJobOperator_ListJobs_CapsLimit(t *testing.T) {
	operator, cfg := newTestOperator(t)
	cfg.Job.ListLimit = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := operator.CreateJob(ctx, model.JobTypeDocumentParsing, "county-001", 10, 10+i)
		require.NoError(t, err)
	}

	jobs, err := operator.ListJobs(ctx, repository.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, jobs, 3, "an unset limit falls back to the configured cap")

	jobs, err = operator.ListJobs(ctx, repository.JobFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, jobs, 3, "a caller limit above the cap is clamped")

	jobs, err = operator.ListJobs(ctx, repository.JobFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
