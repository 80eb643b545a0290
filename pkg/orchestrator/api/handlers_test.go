package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/analyzer"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/api"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/bottleneck"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/inmemory"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/planner"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/queue"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRecordStore serves a fixed backlog for the planning endpoints.
type staticRecordStore struct {
	counts map[model.Stage]map[string]model.StageCounts
}

func (s *staticRecordStore) StageCounts(_ context.Context, stage model.Stage, _ string) (map[string]model.StageCounts, error) {
	return s.counts[stage], nil
}

func (s *staticRecordStore) CountEligible(context.Context, model.Stage, string) (int, error) {
	return 0, nil
}

func (s *staticRecordStore) CountDone(context.Context, model.Stage, string) (int, error) {
	return 0, nil
}

type noDeadlines struct{}

func (noDeadlines) NextDeadline(context.Context, string) (*time.Time, error) { return nil, nil }
func (noDeadlines) UpcomingDeadlines(context.Context) (map[string]time.Time, error) {
	return map[string]time.Time{}, nil
}

type acceptAllInvoker struct{ n int }

func (a *acceptAllInvoker) StartWork(context.Context, model.JobType, string, int, int) (ports.WorkerHandle, error) {
	a.n++
	return ports.WorkerHandle(fmt.Sprintf("handle-%d", a.n)), nil
}

// apiFixture wires the handlers over in-memory repositories, mirroring the
// server's route table.
type apiFixture struct {
	engine   *gin.Engine
	operator usecase.JobOperator
	planning *usecase.PlanningService
	tracker  *session.Tracker
	cfg      *config.Config
}

func newAPIFixture(t *testing.T, records *staticRecordStore) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewConfig()
	jobs := inmemory.NewJobRepository()
	sessions := inmemory.NewSessionRepository()
	recorder := metrics.NewNoopRecorder()
	tracer := metrics.NewNoopTracer()
	operator := usecase.NewDefaultJobOperator(jobs, recorder, cfg)
	planning := usecase.NewPlanningService(
		analyzer.NewGapAnalyzer(records),
		queue.NewBuilder(cfg, noDeadlines{}),
		planner.NewPlanner(cfg),
		bottleneck.NewDetector(cfg, jobs),
		recorder,
		tracer,
	)
	tracker := session.NewTracker(sessions, operator, &acceptAllInvoker{}, recorder, tracer, cfg)

	jobsHandler := api.NewJobsHandler(operator)
	planningHandler := api.NewPlanningHandler(planning, cfg)
	sessionsHandler := api.NewSessionsHandler(tracker, planning)

	engine := gin.New()
	group := engine.Group("/api")
	group.GET("/jobs", jobsHandler.ListJobs)
	group.GET("/jobs/:id", jobsHandler.GetJob)
	group.POST("/jobs", jobsHandler.CreateJob)
	group.POST("/jobs/:id/transition", jobsHandler.TransitionJob)
	group.PATCH("/jobs/:id/progress", jobsHandler.PatchProgress)
	group.GET("/queue", planningHandler.GetQueue)
	group.GET("/plan", planningHandler.GetPlan)
	group.GET("/bottlenecks", planningHandler.GetBottlenecks)
	group.GET("/sessions/active", sessionsHandler.GetActiveSession)
	group.POST("/sessions", sessionsHandler.StartSession)
	group.POST("/sessions/:id/abort", sessionsHandler.AbortSession)
	group.POST("/sessions/:id/close", sessionsHandler.CloseSession)
	group.GET("/sessions/:id/consistency", sessionsHandler.VerifyConsistency)
	group.POST("/assignments/:id/progress", sessionsHandler.ReportAssignmentProgress)
	group.POST("/assignments/:id/complete", sessionsHandler.CompleteAssignment)

	return &apiFixture{engine: engine, operator: operator, planning: planning, tracker: tracker, cfg: cfg}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestJobsEndpoints(t *testing.T) {
	f := newAPIFixture(t, &staticRecordStore{})

	// creation
	w := f.do(t, http.MethodPost, "/api/jobs", gin.H{
		"job_type": "document_parsing", "county_id": "county-a", "batch_size": 100, "total_items": 250,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Job model.BatchJob `json:"job"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, model.JobStatusPending, created.Job.Status)

	// invalid job type maps to 400
	w = f.do(t, http.MethodPost, "/api/jobs", gin.H{
		"job_type": "mystery", "county_id": "county-a", "batch_size": 100, "total_items": 250,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// fetch and list
	w = f.do(t, http.MethodGet, "/api/jobs/"+created.Job.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/jobs/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/api/jobs?status=pending", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Job.ID)

	// transitions: valid then conflicting
	w = f.do(t, http.MethodPost, "/api/jobs/"+created.Job.ID+"/transition", gin.H{"target": "running"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/jobs/"+created.Job.ID+"/transition", gin.H{"target": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// absolute progress snapshots; the replay stays 200
	patch := gin.H{"processed_items": 100, "failed_items": 0, "current_batch": 1}
	w = f.do(t, http.MethodPatch, "/api/jobs/"+created.Job.ID+"/progress", patch)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPatch, "/api/jobs/"+created.Job.ID+"/progress", patch)
	assert.Equal(t, http.StatusOK, w.Code, "a retried snapshot is idempotent")

	// counter violations map to 422
	w = f.do(t, http.MethodPatch, "/api/jobs/"+created.Job.ID+"/progress",
		gin.H{"processed_items": 9999, "failed_items": 0, "current_batch": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPlanningEndpoints(t *testing.T) {
	f := newAPIFixture(t, &staticRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageEnrich: {"county-a": {Eligible: 100, Done: 40}},
	}})

	// before the first cycle every planning read is unavailable
	for _, path := range []string{"/api/queue", "/api/plan", "/api/bottlenecks"} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	_, err := f.planning.RunCycle(context.Background(), "")
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queuePayload struct {
		Queue []model.WorkQueueItem `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queuePayload))
	require.Len(t, queuePayload.Queue, 1)
	assert.Equal(t, 60, queuePayload.Queue[0].ItemsTotal)

	w = f.do(t, http.MethodGet, "/api/plan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var planPayload struct {
		Plan model.SessionPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &planPayload))
	assert.True(t, planPayload.Plan.Recommended)

	w = f.do(t, http.MethodGet, "/api/bottlenecks", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueueEndpointCapsResponse(t *testing.T) {
	f := newAPIFixture(t, &staticRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageEnrich: {
			"county-a": {Eligible: 100, Done: 40},
			"county-b": {Eligible: 100, Done: 30},
			"county-c": {Eligible: 100, Done: 20},
			"county-d": {Eligible: 100, Done: 10},
			"county-e": {Eligible: 100, Done: 0},
		},
	}})
	f.cfg.Job.ListLimit = 3

	_, err := f.planning.RunCycle(context.Background(), "")
	require.NoError(t, err)

	var payload struct {
		Queue      []model.WorkQueueItem `json:"queue"`
		QueueTotal int                   `json:"queue_total"`
	}

	// without a limit the configured cap applies
	w := f.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Queue, 3)
	assert.Equal(t, 5, payload.QueueTotal)

	w = f.do(t, http.MethodGet, "/api/queue?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Queue, 2)
	assert.Equal(t, 5, payload.QueueTotal)

	// a limit above the cap is clamped, not honored
	w = f.do(t, http.MethodGet, "/api/queue?limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Queue, 3)

	for _, path := range []string{"/api/queue?limit=0", "/api/queue?limit=-1", "/api/queue?limit=abc"} {
		w = f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestSessionEndpoints(t *testing.T) {
	f := newAPIFixture(t, &staticRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageEnrich: {"county-a": {Eligible: 50, Done: 0}},
	}})

	w := f.do(t, http.MethodGet, "/api/sessions/active", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a session cannot start before a cycle has produced a plan
	w = f.do(t, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, err := f.planning.RunCycle(context.Background(), "")
	require.NoError(t, err)

	w = f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started struct {
		Session model.OrchestrationSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, "api", started.Session.TriggerSource)

	// starting again collides with the in-flight assignment
	w = f.do(t, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, "/api/sessions/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active struct {
		Assignments []model.AgentAssignment `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	require.Len(t, active.Assignments, 1)
	assignmentID := active.Assignments[0].ID

	// worker progress and completion
	w = f.do(t, http.MethodPost, "/api/assignments/"+assignmentID+"/progress",
		gin.H{"processed_items": 20, "failed_items": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/assignments/"+assignmentID+"/progress",
		gin.H{"processed_items": 20, "failed_items": 1})
	assert.Equal(t, http.StatusOK, w.Code, "a retried report is benign")

	w = f.do(t, http.MethodGet, "/api/sessions/"+started.Session.ID+"/consistency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"consistent":true`)

	// closing before the assignment settles is a conflict
	w = f.do(t, http.MethodPost, "/api/sessions/"+started.Session.ID+"/close", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/assignments/"+assignmentID+"/complete",
		gin.H{"succeeded": false, "error_message": "worker shut down"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/sessions/"+started.Session.ID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var closed struct {
		Session model.OrchestrationSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closed))
	assert.Equal(t, model.SessionStatusFailed, closed.Session.Status)
	assert.Equal(t, 20, closed.Session.PropertiesProcessed)
}

func TestSessionEndpoints_Abort(t *testing.T) {
	f := newAPIFixture(t, &staticRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageEnrich: {"county-a": {Eligible: 50, Done: 0}},
	}})

	_, err := f.planning.RunCycle(context.Background(), "")
	require.NoError(t, err)
	w := f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var started struct {
		Session model.OrchestrationSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	w = f.do(t, http.MethodPost, "/api/sessions/"+started.Session.ID+"/abort", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var aborted struct {
		Session model.OrchestrationSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &aborted))
	assert.Equal(t, model.SessionStatusFailed, aborted.Session.Status)
	assert.Equal(t, "session aborted", aborted.Session.Notes)

	// aborting a settled session is a conflict
	w = f.do(t, http.MethodPost, "/api/sessions/"+started.Session.ID+"/abort", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
