package planner

import (
	"go.uber.org/fx"
)

// Module provides the session Planner to the application container.
var Module = fx.Options(
	fx.Provide(NewPlanner),
)
