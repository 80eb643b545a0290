package model_test

import (
	"testing"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssignment(t *testing.T) *model.AgentAssignment {
	t.Helper()
	item := model.NewWorkQueueItem("county-001", model.StageEnrich, 50, 25, 20)
	return model.NewAgentAssignment("session-1", "worker-1", "job-1", item)
}

func TestNewAgentAssignment(t *testing.T) {
	a := newTestAssignment(t)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, model.AssignmentStatusPending, a.Status)
	assert.Equal(t, model.JobTypeRegridEnrichment, a.JobType)
	assert.Equal(t, "county-001", a.CountyID)
	assert.Equal(t, 50, a.ItemsTotal)
	assert.Equal(t, 20, a.Priority)
	assert.Nil(t, a.StartedAt)
}

func TestAgentAssignment_Start(t *testing.T) {
	a := newTestAssignment(t)
	require.NoError(t, a.Start("handle-abc"))

	assert.Equal(t, model.AssignmentStatusInProgress, a.Status)
	assert.Equal(t, "handle-abc", a.WorkerHandle)
	assert.NotNil(t, a.StartedAt)

	// starting twice is an invalid transition
	err := a.Start("handle-def")
	assert.True(t, exception.IsInvalidTransition(err))
	assert.Equal(t, "handle-abc", a.WorkerHandle)
}

func TestAgentAssignment_ApplyReport(t *testing.T) {
	a := newTestAssignment(t)
	require.NoError(t, a.Start("handle-abc"))

	require.NoError(t, a.ApplyReport(10, 1))
	assert.Equal(t, 10, a.ItemsProcessed)
	assert.Equal(t, 1, a.ItemsFailed)
	assert.Equal(t, 22, a.Progress(), "11 of 50 items is 22%")

	// a duplicate report is stale, not fatal
	err := a.ApplyReport(10, 1)
	assert.True(t, exception.IsStaleProgress(err))
	assert.Equal(t, 10, a.ItemsProcessed)

	// a regressing report is stale too
	err = a.ApplyReport(5, 0)
	assert.True(t, exception.IsStaleProgress(err))

	// out-of-range reports are hard errors
	err = a.ApplyReport(49, 5)
	assert.True(t, exception.IsOutOfRange(err), "54 items exceed the assignment total of 50")

	// reports while not in_progress are rejected
	pending := newTestAssignment(t)
	err = pending.ApplyReport(1, 0)
	assert.True(t, exception.IsInvalidTransition(err))
}

func TestAgentAssignment_Complete(t *testing.T) {
	a := newTestAssignment(t)
	require.NoError(t, a.Start("handle-abc"))
	require.NoError(t, a.Complete(true, ""))

	assert.Equal(t, model.AssignmentStatusCompleted, a.Status)
	assert.NotNil(t, a.CompletedAt)

	err := a.Complete(false, "late failure")
	assert.True(t, exception.IsInvalidTransition(err), "a terminal assignment accepts no further completion")

	// a pending assignment may be failed directly (worker never started)
	b := newTestAssignment(t)
	require.NoError(t, b.Complete(false, "invocation refused"))
	assert.Equal(t, model.AssignmentStatusFailed, b.Status)
	assert.Equal(t, "invocation refused", b.ErrorMessage)
}

func TestStringList_RoundTrip(t *testing.T) {
	list := model.StringList{"worker-1", "worker-2"}
	value, err := list.Value()
	require.NoError(t, err)

	var scanned model.StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	var fromNil model.StringList
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}
