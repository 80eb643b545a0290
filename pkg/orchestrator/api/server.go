package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	inframetrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// Server is the orchestrator's HTTP server.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// NewServer builds the gin engine and wires every route.
func NewServer(
	cfg *config.Config,
	jobs *JobsHandler,
	planning *PlanningHandler,
	sessions *SessionsHandler,
	recorder *inframetrics.PrometheusRecorder,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	apiGroup := engine.Group("/api")
	{
		apiGroup.GET("/jobs", jobs.ListJobs)
		apiGroup.GET("/jobs/:id", jobs.GetJob)
		apiGroup.POST("/jobs", jobs.CreateJob)
		apiGroup.POST("/jobs/:id/transition", jobs.TransitionJob)
		apiGroup.PATCH("/jobs/:id/progress", jobs.PatchProgress)

		apiGroup.GET("/queue", planning.GetQueue)
		apiGroup.GET("/plan", planning.GetPlan)
		apiGroup.GET("/bottlenecks", planning.GetBottlenecks)

		apiGroup.GET("/sessions/active", sessions.GetActiveSession)
		apiGroup.POST("/sessions", sessions.StartSession)
		apiGroup.POST("/sessions/:id/abort", sessions.AbortSession)
		apiGroup.POST("/sessions/:id/close", sessions.CloseSession)
		apiGroup.GET("/sessions/:id/consistency", sessions.VerifyConsistency)
		apiGroup.POST("/assignments/:id/progress", sessions.ReportAssignmentProgress)
		apiGroup.POST("/assignments/:id/complete", sessions.CompleteAssignment)
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{})))
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:    cfg.Server.Address,
			Handler: engine,
		},
	}
}

// Start begins serving in the background.
func (s *Server) Start(_ context.Context) error {
	if !s.cfg.Server.Enabled {
		logger.Infof("HTTP server is disabled")
		return nil
	}
	go func() {
		logger.Infof("HTTP server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server terminated: %v", err)
		}
	}()
	return nil
}

// Stop drains and shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.cfg.Server.Enabled {
		return nil
	}
	return s.http.Shutdown(ctx)
}
