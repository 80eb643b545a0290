package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
)

// JobsHandler serves the job endpoints.
type JobsHandler struct {
	operator usecase.JobOperator
}

// NewJobsHandler creates a JobsHandler.
func NewJobsHandler(operator usecase.JobOperator) *JobsHandler {
	return &JobsHandler{operator: operator}
}

type createJobRequest struct {
	JobType    model.JobType `json:"job_type" binding:"required"`
	CountyID   string        `json:"county_id" binding:"required"`
	BatchSize  int           `json:"batch_size" binding:"required"`
	TotalItems int           `json:"total_items" binding:"required"`
}

type transitionRequest struct {
	Target model.JobStatus `json:"target" binding:"required"`
}

type progressRequest struct {
	ProcessedItems int `json:"processed_items"`
	FailedItems    int `json:"failed_items"`
	CurrentBatch   int `json:"current_batch"`
}

// GET /api/jobs?status=&county_id=&limit=
func (h *JobsHandler) ListJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	jobs, err := h.operator.ListJobs(c.Request.Context(), repository.JobFilter{
		Status:   model.JobStatus(c.Query("status")),
		CountyID: c.Query("county_id"),
		Limit:    limit,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.operator.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.operator.CreateJob(c.Request.Context(), req.JobType, req.CountyID, req.BatchSize, req.TotalItems)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// POST /api/jobs/:id/transition
func (h *JobsHandler) TransitionJob(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.operator.TransitionJob(c.Request.Context(), c.Param("id"), req.Target)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// PATCH /api/jobs/:id/progress
//
// The body carries an absolute snapshot, so retried patches are idempotent.
func (h *JobsHandler) PatchProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.operator.PatchProgress(c.Request.Context(), c.Param("id"), req.ProcessedItems, req.FailedItems, req.CurrentBatch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}
