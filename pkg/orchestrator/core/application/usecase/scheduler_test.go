package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(appCtx context.Context, cfg *config.Config) (*usecase.Scheduler, *usecase.PlanningService) {
	store := &fixedRecordStore{counts: map[model.Stage]map[string]model.StageCounts{
		model.StageEnrich: {"county-a": {Eligible: 100, Done: 40}},
	}}
	planning := newPlanningService(store)
	sched := usecase.NewScheduler(usecase.SchedulerParams{
		Cfg:      cfg,
		Planning: planning,
		Jobs:     inmemory.NewJobRepository(),
		AppCtx:   appCtx,
	})
	return sched, planning
}

func TestScheduler_StartWarmsPlanningCache(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Scheduler.IntervalSeconds = 3600 // only the warm-up cycle runs
	sched, planning := newScheduler(context.Background(), cfg)

	require.NoError(t, sched.Start(context.Background()))
	assert.Eventually(t, func() bool { return planning.Latest() != nil },
		time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(stopCtx))
}

func TestScheduler_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Scheduler.Enabled = false
	sched, planning := newScheduler(context.Background(), cfg)

	require.NoError(t, sched.Start(context.Background()))
	assert.Nil(t, planning.Latest(), "no loop, no warm-up cycle")
	require.NoError(t, sched.Stop(context.Background()))
}

func TestScheduler_AppContextCancellationStopsLoop(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Scheduler.IntervalSeconds = 3600
	appCtx, cancelApp := context.WithCancel(context.Background())
	sched, _ := newScheduler(appCtx, cfg)

	require.NoError(t, sched.Start(context.Background()))
	cancelApp()

	// Stop is handed an already-expired context, so it cannot wait: it only
	// returns nil once the loop has already exited on the application context.
	expired, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Eventually(t, func() bool { return sched.Stop(expired) == nil },
		time.Second, 10*time.Millisecond)
}
