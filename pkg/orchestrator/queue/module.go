package queue

import (
	"go.uber.org/fx"
)

// Module provides the work queue Builder to the application container.
var Module = fx.Options(
	fx.Provide(NewBuilder),
)
