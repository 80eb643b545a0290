package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
)

// PlanningHandler serves the read-only status endpoints over the latest
// planning cycle. It never triggers external work: reads come from the
// planning service's cache.
type PlanningHandler struct {
	planning *usecase.PlanningService
	cfg      *config.Config
}

// NewPlanningHandler creates a PlanningHandler.
func NewPlanningHandler(planning *usecase.PlanningService, cfg *config.Config) *PlanningHandler {
	return &PlanningHandler{planning: planning, cfg: cfg}
}

func (h *PlanningHandler) latest(c *gin.Context) *usecase.CycleResult {
	result := h.planning.Latest()
	if result == nil {
		RespondError(c, http.StatusServiceUnavailable, "no_cycle_yet",
			errors.New("no planning cycle has completed yet"))
		return nil
	}
	return result
}

// GET /api/queue?limit=
// The queue scales with counties times stages, so the response is always
// capped; a limit above the configured cap is clamped, not honored.
func (h *PlanningHandler) GetQueue(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	limit := h.cfg.Job.ListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit",
				errors.New("limit must be a positive integer"))
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}
	queue := result.Queue
	if len(queue) > limit {
		queue = queue[:limit]
	}
	RespondOK(c, gin.H{
		"queue":        queue,
		"queue_total":  len(result.Queue),
		"generated_at": result.GeneratedAt,
	})
}

// GET /api/plan
func (h *PlanningHandler) GetPlan(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	RespondOK(c, gin.H{"plan": result.Plan, "generated_at": result.GeneratedAt})
}

// GET /api/bottlenecks
func (h *PlanningHandler) GetBottlenecks(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	RespondOK(c, gin.H{"bottlenecks": result.Bottlenecks, "generated_at": result.GeneratedAt})
}
