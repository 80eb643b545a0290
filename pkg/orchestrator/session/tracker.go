// Package session tracks orchestration sessions: the binding of an accepted
// session plan to external workers through agent assignments, and the
// propagation of worker progress into the job store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const trackerModule = "session_tracker"

// abortMessage is the standard error message written onto every assignment
// failed by a session abort.
const abortMessage = "session aborted"

// tokensPerReviewedItem is the rough per-item token estimate for the
// AI-backed validation and approval stages, used for the session's cost hint.
const tokensPerReviewedItem = 1200

// Tracker owns the lifecycle of orchestration sessions and their agent
// assignments. Assignments are a view over job execution, not an independent
// ledger: every progress report is propagated into the underlying BatchJob
// through the job operator, so the two can never diverge by more than one
// in-flight report.
type Tracker struct {
	sessions repository.SessionRepository
	operator usecase.JobOperator
	invoker  ports.WorkerInvoker
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	cfg      *config.Config
}

// NewTracker creates a Tracker.
func NewTracker(
	sessions repository.SessionRepository,
	operator usecase.JobOperator,
	invoker ports.WorkerInvoker,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	cfg *config.Config,
) *Tracker {
	return &Tracker{
		sessions: sessions,
		operator: operator,
		invoker:  invoker,
		recorder: recorder,
		tracer:   tracer,
		cfg:      cfg,
	}
}

// Start accepts a session plan for execution: it persists an active session
// with one pending assignment per selected work item, then starts a worker
// for each assignment. At most one active assignment may exist per (county,
// job_type) pair across all sessions: a colliding plan is rejected as a
// whole, first by a pre-check for a friendly error before anything is
// persisted, and finally by the store's uniqueness guard, which serializes
// concurrent planning cycles that both passed the pre-check.
func (t *Tracker) Start(ctx context.Context, plan model.SessionPlan, triggerSource string) (*model.OrchestrationSession, error) {
	ctx, span := t.tracer.StartSpan(ctx, "session.start")
	defer span.End()

	if !plan.Recommended || len(plan.SelectedWork) == 0 {
		return nil, exception.New(trackerModule, exception.KindInvalidInput, "plan has no selected work")
	}
	if len(t.cfg.Workers.Agents) == 0 {
		return nil, exception.New(trackerModule, exception.KindInvalidInput, "no worker agents configured")
	}

	for _, item := range plan.SelectedWork {
		active, err := t.sessions.CountActiveAssignments(ctx, item.CountyID, item.JobType)
		if err != nil {
			return nil, exception.Wrap(trackerModule, exception.KindInternal, "failed to check active assignments", err)
		}
		if active > 0 {
			return nil, exception.Newf(trackerModule, exception.KindInvalidTransition,
				"county '%s' already has an active %s assignment", item.CountyID, item.JobType)
		}
	}

	sess := model.NewOrchestrationSession(triggerSource)
	assignments := make([]*model.AgentAssignment, 0, len(plan.SelectedWork))
	for i, item := range plan.SelectedWork {
		job, err := t.jobForItem(ctx, item)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		agent := t.cfg.Workers.Agents[i%len(t.cfg.Workers.Agents)]
		assignments = append(assignments, model.NewAgentAssignment(sess.ID, agent, job.ID, item))
		sess.AgentsUsed = appendUnique(sess.AgentsUsed, agent)
		if item.Stage == model.StageValidate || item.Stage == model.StageApprove {
			sess.EstimatedTokens += int64(item.ItemsTotal) * tokensPerReviewedItem
		}
	}
	if err := t.sessions.SaveSession(ctx, sess, assignments); err != nil {
		span.RecordError(err)
		// The store's uniqueness guard is the serialization point; a
		// collision that slipped past the pre-check keeps its kind.
		if exception.IsInvalidTransition(err) {
			return nil, err
		}
		return nil, exception.Wrap(trackerModule, exception.KindInternal, "failed to persist session", err)
	}
	logger.Infof("Session %s started (%s): %d assignments, %d items",
		sess.ID, triggerSource, len(assignments), plan.TotalItemsSelected)

	for _, assignment := range assignments {
		if err := t.startAssignment(ctx, assignment); err != nil {
			logger.Errorf("Assignment %s failed to start: %v", assignment.ID, err)
		}
	}
	return sess, nil
}

// jobForItem finds a resumable paused job for the item's (county, job_type)
// pair, or creates a fresh pending job sized to the item. Resuming keeps an
// aborted session's backlog attached to its original counters.
func (t *Tracker) jobForItem(ctx context.Context, item model.WorkQueueItem) (*model.BatchJob, error) {
	paused, err := t.operator.ListJobs(ctx, repository.JobFilter{
		Status:   model.JobStatusPaused,
		CountyID: item.CountyID,
	})
	if err != nil {
		return nil, err
	}
	for _, job := range paused {
		if job.JobType == item.JobType && job.Remaining() > 0 {
			logger.Infof("Resuming paused job %s for county '%s' (%d items remaining)",
				job.ID, job.CountyID, job.Remaining())
			return job, nil
		}
	}
	return t.operator.CreateJob(ctx, item.JobType, item.CountyID, item.BatchSize, item.ItemsTotal)
}

// startAssignment hands one assignment to a worker. The invocation is
// fire-and-track: the worker accepted the work when StartWork returns, and
// all further progress arrives through ReportAssignmentProgress. A worker
// that cannot start fails only its own assignment.
func (t *Tracker) startAssignment(ctx context.Context, assignment *model.AgentAssignment) error {
	batchSize := 0
	if stage, ok := assignment.JobType.Stage(); ok {
		batchSize = t.cfg.Queue.BatchSize(stage)
	}
	handle, err := t.invoker.StartWork(ctx, assignment.JobType, assignment.CountyID, batchSize, assignment.ItemsTotal)
	if err != nil {
		if cerr := assignment.Complete(false, err.Error()); cerr == nil {
			if uerr := t.sessions.UpdateAssignment(ctx, assignment); uerr != nil {
				logger.Errorf("Failed to persist assignment %s failure: %v", assignment.ID, uerr)
			}
		}
		return exception.Wrap(trackerModule, exception.KindInternal, "worker invocation failed", err)
	}
	if err := assignment.Start(string(handle)); err != nil {
		return err
	}
	if err := t.sessions.UpdateAssignment(ctx, assignment); err != nil {
		return exception.Wrap(trackerModule, exception.KindInternal, "failed to persist assignment start", err)
	}
	if _, err := t.operator.TransitionJob(ctx, assignment.BatchJobID, model.JobStatusRunning); err != nil {
		return err
	}
	logger.Infof("Assignment %s started on agent '%s' (worker handle %s)", assignment.ID, assignment.Agent, handle)
	return nil
}

// ReportAssignmentProgress applies an absolute progress report from a worker
// and propagates the resulting delta into the underlying job. Reports must
// arrive in non-decreasing order of processed items; a stale or duplicate
// report is logged and the assignment returned unchanged, so worker retries
// are harmless.
func (t *Tracker) ReportAssignmentProgress(ctx context.Context, assignmentID string, processed, failed int) (*model.AgentAssignment, error) {
	assignment, err := t.sessions.FindAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	deltaProcessed := processed - assignment.ItemsProcessed
	deltaFailed := failed - assignment.ItemsFailed
	if err := assignment.ApplyReport(processed, failed); err != nil {
		if exception.IsStaleProgress(err) {
			logger.Warnf("Assignment %s: stale progress report ignored: %v", assignment.ID, err)
			return assignment, nil
		}
		return nil, err
	}
	if err := t.sessions.UpdateAssignment(ctx, assignment); err != nil {
		return nil, exception.Wrap(trackerModule, exception.KindInternal, "failed to persist assignment progress", err)
	}

	job, err := t.operator.GetJob(ctx, assignment.BatchJobID)
	if err != nil {
		return nil, err
	}
	batch := model.CeilDiv(job.ProcessedItems+job.FailedItems+deltaProcessed+deltaFailed, job.BatchSize)
	if batch < job.CurrentBatch {
		batch = job.CurrentBatch
	}
	if _, err := t.operator.RecordProgress(ctx, job.ID, deltaProcessed, deltaFailed, batch); err != nil {
		return nil, err
	}
	t.recorder.RecordAssignmentProgress(ctx, assignment.JobType, deltaProcessed, deltaFailed)
	logger.Debugf("Assignment %s at %d%% (%d processed, %d failed of %d)",
		assignment.ID, assignment.Progress(), assignment.ItemsProcessed, assignment.ItemsFailed, assignment.ItemsTotal)
	return assignment, nil
}

// CompleteAssignment moves an assignment to its terminal state and settles
// the underlying job: a fully accounted job completes, anything else pauses
// so the remaining backlog stays resumable. A failure outcome additionally
// records the error on the job.
func (t *Tracker) CompleteAssignment(ctx context.Context, assignmentID string, succeeded bool, errorMessage string) (*model.AgentAssignment, error) {
	assignment, err := t.sessions.FindAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := assignment.Complete(succeeded, errorMessage); err != nil {
		return nil, err
	}
	if err := t.sessions.UpdateAssignment(ctx, assignment); err != nil {
		return nil, exception.Wrap(trackerModule, exception.KindInternal, "failed to persist assignment completion", err)
	}
	if err := t.settleJob(ctx, assignment, succeeded, errorMessage); err != nil {
		return nil, err
	}
	logger.Infof("Assignment %s completed (succeeded=%t)", assignment.ID, succeeded)
	return assignment, nil
}

func (t *Tracker) settleJob(ctx context.Context, assignment *model.AgentAssignment, succeeded bool, errorMessage string) error {
	job, err := t.operator.GetJob(ctx, assignment.BatchJobID)
	if err != nil {
		return err
	}
	if !succeeded && errorMessage != "" {
		if _, err := t.operator.RecordJobError(ctx, job.ID, errorMessage); err != nil {
			return err
		}
	}
	if job.Status != model.JobStatusRunning {
		return nil
	}
	target := model.JobStatusPaused
	if succeeded && job.Remaining() == 0 {
		target = model.JobStatusCompleted
	}
	_, err = t.operator.TransitionJob(ctx, job.ID, target)
	return err
}

// Close finalizes a session once every assignment is terminal, aggregating
// the assignments' counters into the session totals.
func (t *Tracker) Close(ctx context.Context, sessionID string) (*model.OrchestrationSession, error) {
	sess, err := t.sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusActive {
		return nil, exception.Newf(trackerModule, exception.KindInvalidTransition,
			"session %s is already %s", sess.ID, sess.Status)
	}
	assignments, err := t.sessions.ListAssignmentsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	processed, failed, anyCompleted := 0, 0, false
	for _, a := range assignments {
		if !a.Status.IsTerminal() {
			return nil, exception.Newf(trackerModule, exception.KindInvalidTransition,
				"session %s cannot close: assignment %s is still %s", sess.ID, a.ID, a.Status)
		}
		processed += a.ItemsProcessed
		failed += a.ItemsFailed
		anyCompleted = anyCompleted || a.Status == model.AssignmentStatusCompleted
	}

	now := time.Now()
	sess.PropertiesProcessed = processed
	sess.PropertiesFailed = failed
	sess.Status = model.SessionStatusCompleted
	if !anyCompleted {
		sess.Status = model.SessionStatusFailed
	}
	sess.EndedAt = &now
	sess.UpdatedAt = now
	if err := t.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, exception.Wrap(trackerModule, exception.KindInternal, "failed to persist session close", err)
	}
	t.recorder.RecordSessionEnd(ctx, sess.Status, processed, failed)
	logger.Infof("Session %s closed as %s: %d processed, %d failed", sess.ID, sess.Status, processed, failed)
	return sess, nil
}

// Abort cancels a session: every non-terminal assignment is failed with the
// standard abort message and its job is paused, never failed, so the backlog
// remains resumable by a later cycle. Per-assignment failures are collected
// and the abort continues; one stuck assignment must not leave the rest dangling.
func (t *Tracker) Abort(ctx context.Context, sessionID string) (*model.OrchestrationSession, error) {
	ctx, span := t.tracer.StartSpan(ctx, "session.abort")
	defer span.End()

	sess, err := t.sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusActive {
		return nil, exception.Newf(trackerModule, exception.KindInvalidTransition,
			"session %s is already %s", sess.ID, sess.Status)
	}
	assignments, err := t.sessions.ListAssignmentsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var aborted *multierror.Error
	processed, failed := 0, 0
	for _, a := range assignments {
		processed += a.ItemsProcessed
		failed += a.ItemsFailed
		if a.Status.IsTerminal() {
			continue
		}
		if err := a.Complete(false, abortMessage); err != nil {
			aborted = multierror.Append(aborted, err)
			continue
		}
		if err := t.sessions.UpdateAssignment(ctx, a); err != nil {
			aborted = multierror.Append(aborted, err)
			continue
		}
		if err := t.pauseJob(ctx, a.BatchJobID); err != nil {
			aborted = multierror.Append(aborted, err)
		}
	}

	now := time.Now()
	sess.Status = model.SessionStatusFailed
	sess.PropertiesProcessed = processed
	sess.PropertiesFailed = failed
	sess.Notes = abortMessage
	sess.EndedAt = &now
	sess.UpdatedAt = now
	if err := t.sessions.UpdateSession(ctx, sess); err != nil {
		aborted = multierror.Append(aborted, err)
	}
	t.recorder.RecordSessionEnd(ctx, sess.Status, processed, failed)
	logger.Warnf("Session %s aborted: %d assignments, %d processed, %d failed", sess.ID, len(assignments), processed, failed)

	if err := aborted.ErrorOrNil(); err != nil {
		span.RecordError(err)
		return sess, exception.Wrap(trackerModule, exception.KindSessionAborted, "session abort finished with errors", err)
	}
	return sess, nil
}

// pauseJob pauses a running job during abort. A job whose worker never
// started is still pending and needs no transition to stay resumable.
func (t *Tracker) pauseJob(ctx context.Context, jobID string) error {
	job, err := t.operator.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusRunning {
		return nil
	}
	_, err = t.operator.TransitionJob(ctx, jobID, model.JobStatusPaused)
	return err
}

// ActiveSession returns the current active session with its assignments, or
// (nil, nil, nil) when no session is active.
func (t *Tracker) ActiveSession(ctx context.Context) (*model.OrchestrationSession, []*model.AgentAssignment, error) {
	sess, err := t.sessions.FindActiveSession(ctx)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	assignments, err := t.sessions.ListAssignmentsBySession(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, assignments, nil
}

// VerifyConsistency compares each assignment's counters against its job's
// counters and reports drift. An assignment can never have recorded more
// items than its job, since every report propagates through the job operator;
// any such drift indicates a write that bypassed the single ledger.
func (t *Tracker) VerifyConsistency(ctx context.Context, sessionID string) ([]string, error) {
	assignments, err := t.sessions.ListAssignmentsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var drift []string
	for _, a := range assignments {
		job, err := t.operator.GetJob(ctx, a.BatchJobID)
		if err != nil {
			return nil, err
		}
		if a.ItemsProcessed+a.ItemsFailed > job.ProcessedItems+job.FailedItems {
			msg := fmt.Sprintf("assignment %s recorded %d items but job %s has only %d accounted for",
				a.ID, a.ItemsProcessed+a.ItemsFailed, job.ID, job.ProcessedItems+job.FailedItems)
			drift = append(drift, msg)
			logger.Errorf("Consistency check: %s", msg)
		}
	}
	return drift, nil
}

func appendUnique(list model.StringList, value string) model.StringList {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
