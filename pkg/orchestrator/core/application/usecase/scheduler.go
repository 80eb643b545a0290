package usecase

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// SnapshotExporter persists a planning cycle result as a run artifact.
// The scheduler treats export failures as non-fatal.
type SnapshotExporter interface {
	Export(ctx context.Context, result *CycleResult) error
}

// Scheduler re-runs the planning cycle on a fixed cadence, flags stale
// running jobs for operator review and optionally exports a cycle snapshot.
// It owns no planning state of its own.
type Scheduler struct {
	cfg      *config.Config
	planning *PlanningService
	jobs     repository.JobRepository
	exporter SnapshotExporter
	appCtx   context.Context

	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerParams declares the Scheduler's dependencies. The exporter is
// optional; without one, snapshots are simply skipped.
type SchedulerParams struct {
	fx.In

	Cfg      *config.Config
	Planning *PlanningService
	Jobs     repository.JobRepository
	Exporter SnapshotExporter `optional:"true"`
	// AppCtx is the signal-bound application context; its cancellation stops
	// the loop even before the fx OnStop hook runs.
	AppCtx context.Context `name:"appCtx" optional:"true"`
}

// NewScheduler creates a Scheduler.
func NewScheduler(p SchedulerParams) *Scheduler {
	appCtx := p.AppCtx
	if appCtx == nil {
		appCtx = context.Background()
	}
	return &Scheduler{
		cfg:      p.Cfg,
		planning: p.Planning,
		jobs:     p.Jobs,
		exporter: p.Exporter,
		appCtx:   appCtx,
	}
}

// Start launches the scheduling loop. An immediate first cycle warms the
// status surface's cache before the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Scheduler.Enabled {
		logger.Infof("Scheduler is disabled; planning cycles run on demand only")
		return nil
	}
	loopCtx, cancel := context.WithCancel(s.appCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx)
	return nil
}

// Stop terminates the scheduling loop and waits for the current cycle to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	interval := s.cfg.Scheduler.Interval()
	logger.Infof("Scheduler started with a %s planning interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled iteration. Each step's failure is logged and the
// remaining steps still run; the loop itself never dies on a bad cycle.
func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.planning.RunCycle(ctx, "")
	if err != nil {
		logger.Errorf("Planning cycle failed: %v", err)
	} else if s.exporter != nil && s.cfg.Export.Enabled {
		if err := s.exporter.Export(ctx, result); err != nil {
			logger.Warnf("Cycle snapshot export failed: %v", err)
		}
	}
	s.flagStaleJobs(ctx)
}

// flagStaleJobs reports running jobs with no progress inside the stale
// window. Stale jobs are surfaced for operator review, never auto-failed.
func (s *Scheduler) flagStaleJobs(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Scheduler.StaleTimeout())
	stale, err := s.jobs.ListRunningUpdatedBefore(ctx, cutoff)
	if err != nil {
		logger.Errorf("Stale job scan failed: %v", err)
		return
	}
	for _, job := range stale {
		logger.Warnf("Job %s (%s, county '%s') has reported no progress since %s",
			job.ID, job.JobType, job.CountyID, job.UpdatedAt.Format(time.RFC3339))
	}
}
