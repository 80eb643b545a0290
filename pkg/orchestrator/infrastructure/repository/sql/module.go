package sql

import (
	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
)

// Module provides the gorm-backed repositories.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewJobRepository,
		fx.As(new(repository.JobRepository)),
	)),
	fx.Provide(fx.Annotate(
		NewSessionRepository,
		fx.As(new(repository.SessionRepository)),
	)),
)
