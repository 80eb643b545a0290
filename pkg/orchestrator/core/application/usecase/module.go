package usecase

import (
	"context"

	"go.uber.org/fx"
)

// Module is the Fx module for the job operator, planning service and scheduler.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewDefaultJobOperator,
		fx.As(new(JobOperator)),
	)),
	fx.Provide(NewPlanningService),
	fx.Provide(NewScheduler),

	// Bind the scheduler to the application lifecycle.
	fx.Invoke(func(lc fx.Lifecycle, scheduler *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return scheduler.Start(ctx) },
			OnStop:  func(ctx context.Context) error { return scheduler.Stop(ctx) },
		})
	}),
)
