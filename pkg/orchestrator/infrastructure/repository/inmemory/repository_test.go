package inmemory_test

import (
	"context"
	"testing"
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/inmemory"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveJob(t *testing.T, repo *inmemory.JobRepository, jobType model.JobType, countyID string, createdAt time.Time) *model.BatchJob {
	t.Helper()
	job, err := model.NewBatchJob(jobType, countyID, 25, 100)
	require.NoError(t, err)
	job.CreatedAt = createdAt
	job.UpdatedAt = createdAt
	require.NoError(t, repo.SaveJob(context.Background(), job))
	return job
}

func TestJobRepository_FindAndUpdate(t *testing.T) {
	repo := inmemory.NewJobRepository()
	ctx := context.Background()
	job := saveJob(t, repo, model.JobTypeDocumentParsing, "county-a", time.Now())

	found, err := repo.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	// copies out: mutating the returned job does not touch the store
	found.ProcessedItems = 99
	again, err := repo.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ProcessedItems)

	_, err = repo.FindJobByID(ctx, "missing")
	assert.True(t, exception.IsNotFound(err))

	ghost := *job
	ghost.ID = "missing"
	assert.True(t, exception.IsNotFound(repo.UpdateJob(ctx, &ghost)))
}

func TestJobRepository_ListJobs(t *testing.T) {
	repo := inmemory.NewJobRepository()
	ctx := context.Background()
	base := time.Now()

	oldest := saveJob(t, repo, model.JobTypeDocumentParsing, "county-a", base.Add(-2*time.Hour))
	middle := saveJob(t, repo, model.JobTypeRegridEnrichment, "county-b", base.Add(-time.Hour))
	newest := saveJob(t, repo, model.JobTypeRegridEnrichment, "county-a", base)

	all, err := repo.ListJobs(ctx, repository.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID, "newest first")
	assert.Equal(t, middle.ID, all[1].ID)
	assert.Equal(t, oldest.ID, all[2].ID)

	byCounty, err := repo.ListJobs(ctx, repository.JobFilter{CountyID: "county-a"})
	require.NoError(t, err)
	assert.Len(t, byCounty, 2)

	limited, err := repo.ListJobs(ctx, repository.JobFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID, limited[0].ID)

	byStatus, err := repo.ListJobs(ctx, repository.JobFilter{Status: model.JobStatusRunning})
	require.NoError(t, err)
	assert.Empty(t, byStatus)
}

func TestJobRepository_ListRunningUpdatedBefore(t *testing.T) {
	repo := inmemory.NewJobRepository()
	ctx := context.Background()
	base := time.Now()

	stale := saveJob(t, repo, model.JobTypeDocumentParsing, "county-a", base.Add(-2*time.Hour))
	stale.Status = model.JobStatusRunning
	require.NoError(t, repo.UpdateJob(ctx, stale))

	fresh := saveJob(t, repo, model.JobTypeRegridEnrichment, "county-b", base)
	fresh.Status = model.JobStatusRunning
	fresh.UpdatedAt = base
	require.NoError(t, repo.UpdateJob(ctx, fresh))

	// paused jobs are not stale candidates however old
	paused := saveJob(t, repo, model.JobTypeScreenshotValidation, "county-c", base.Add(-3*time.Hour))
	paused.Status = model.JobStatusPaused
	require.NoError(t, repo.UpdateJob(ctx, paused))

	found, err := repo.ListRunningUpdatedBefore(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestSessionRepository_ActiveSessionAndAssignments(t *testing.T) {
	repo := inmemory.NewSessionRepository()
	ctx := context.Background()

	none, err := repo.FindActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	sess := model.NewOrchestrationSession("test")
	item := model.NewWorkQueueItem("county-a", model.StageEnrich, 50, 25, 20)
	assignment := model.NewAgentAssignment(sess.ID, "worker-1", "job-1", item)
	require.NoError(t, repo.SaveSession(ctx, sess, []*model.AgentAssignment{assignment}))

	active, err := repo.FindActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)

	count, err := repo.CountActiveAssignments(ctx, "county-a", model.JobTypeRegridEnrichment)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// terminal assignments drop out of the active count
	require.NoError(t, assignment.Complete(false, "test"))
	require.NoError(t, repo.UpdateAssignment(ctx, assignment))
	count, err = repo.CountActiveAssignments(ctx, "county-a", model.JobTypeRegridEnrichment)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = repo.CountActiveAssignments(ctx, "county-a", model.JobTypeDocumentParsing)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "the count is scoped per job type")
}

func TestSessionRepository_SaveSession_RejectsActivePairCollision(t *testing.T) {
	repo := inmemory.NewSessionRepository()
	ctx := context.Background()

	first := model.NewOrchestrationSession("test")
	held := model.NewAgentAssignment(first.ID, "worker-1", "job-1",
		model.NewWorkQueueItem("county-a", model.StageEnrich, 50, 25, 20))
	require.NoError(t, repo.SaveSession(ctx, first, []*model.AgentAssignment{held}))

	// another session may not take in-flight work for the same pair
	second := model.NewOrchestrationSession("test")
	clash := model.NewAgentAssignment(second.ID, "worker-2", "job-2",
		model.NewWorkQueueItem("county-a", model.StageEnrich, 50, 25, 20))
	err := repo.SaveSession(ctx, second, []*model.AgentAssignment{clash})
	assert.True(t, exception.IsInvalidTransition(err))

	// a different county is fine
	other := model.NewAgentAssignment(second.ID, "worker-2", "job-3",
		model.NewWorkQueueItem("county-b", model.StageEnrich, 50, 25, 20))
	require.NoError(t, repo.SaveSession(ctx, second, []*model.AgentAssignment{other}))

	// once the holder reaches a terminal status the pair frees up
	require.NoError(t, held.Complete(false, "test"))
	require.NoError(t, repo.UpdateAssignment(ctx, held))
	third := model.NewOrchestrationSession("test")
	retaken := model.NewAgentAssignment(third.ID, "worker-3", "job-4",
		model.NewWorkQueueItem("county-a", model.StageEnrich, 50, 25, 20))
	require.NoError(t, repo.SaveSession(ctx, third, []*model.AgentAssignment{retaken}))
}

func TestSessionRepository_ListAssignmentsInPriorityOrder(t *testing.T) {
	repo := inmemory.NewSessionRepository()
	ctx := context.Background()

	sess := model.NewOrchestrationSession("test")
	low := model.NewAgentAssignment(sess.ID, "worker-1", "job-1",
		model.NewWorkQueueItem("county-a", model.StageApprove, 10, 50, 40))
	high := model.NewAgentAssignment(sess.ID, "worker-2", "job-2",
		model.NewWorkQueueItem("county-b", model.StageParse, 10, 100, 10))
	require.NoError(t, repo.SaveSession(ctx, sess, []*model.AgentAssignment{low, high}))

	assignments, err := repo.ListAssignmentsBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, high.ID, assignments[0].ID, "lower priority value runs first")
}
