package storage

import (
	"go.uber.org/fx"
)

// Module provides the configured storage Executor.
var Module = fx.Options(
	fx.Provide(NewExecutor),
)
