package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/session"
)

// SessionsHandler serves the session and assignment endpoints.
type SessionsHandler struct {
	tracker  *session.Tracker
	planning *usecase.PlanningService
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(tracker *session.Tracker, planning *usecase.PlanningService) *SessionsHandler {
	return &SessionsHandler{tracker: tracker, planning: planning}
}

type assignmentProgressRequest struct {
	ProcessedItems int `json:"processed_items"`
	FailedItems    int `json:"failed_items"`
}

type assignmentCompleteRequest struct {
	Succeeded    bool   `json:"succeeded"`
	ErrorMessage string `json:"error_message"`
}

// GET /api/sessions/active
func (h *SessionsHandler) GetActiveSession(c *gin.Context) {
	sess, assignments, err := h.tracker.ActiveSession(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if sess == nil {
		RespondError(c, http.StatusNotFound, "no_active_session", errors.New("no session is active"))
		return
	}
	RespondOK(c, gin.H{"session": sess, "assignments": assignments})
}

// POST /api/sessions
//
// Starts a session from the latest recommended plan.
func (h *SessionsHandler) StartSession(c *gin.Context) {
	result := h.planning.Latest()
	if result == nil {
		RespondError(c, http.StatusServiceUnavailable, "no_cycle_yet",
			errors.New("no planning cycle has completed yet"))
		return
	}
	sess, err := h.tracker.Start(c.Request.Context(), result.Plan, "api")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

// POST /api/sessions/:id/abort
func (h *SessionsHandler) AbortSession(c *gin.Context) {
	sess, err := h.tracker.Abort(c.Request.Context(), c.Param("id"))
	if err != nil && sess == nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": sess})
}

// POST /api/sessions/:id/close
func (h *SessionsHandler) CloseSession(c *gin.Context) {
	sess, err := h.tracker.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": sess})
}

// GET /api/sessions/:id/consistency
func (h *SessionsHandler) VerifyConsistency(c *gin.Context) {
	drift, err := h.tracker.VerifyConsistency(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"consistent": len(drift) == 0, "drift": drift})
}

// POST /api/assignments/:id/progress
//
// Workers report absolute counters; stale reports return the unchanged
// assignment with 200, so retries are harmless.
func (h *SessionsHandler) ReportAssignmentProgress(c *gin.Context) {
	var req assignmentProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	assignment, err := h.tracker.ReportAssignmentProgress(c.Request.Context(), c.Param("id"), req.ProcessedItems, req.FailedItems)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignment": assignment})
}

// POST /api/assignments/:id/complete
func (h *SessionsHandler) CompleteAssignment(c *gin.Context) {
	var req assignmentCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	assignment, err := h.tracker.CompleteAssignment(c.Request.Context(), c.Param("id"), req.Succeeded, req.ErrorMessage)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignment": assignment})
}
