package bottleneck

import (
	"go.uber.org/fx"
)

// Module provides the bottleneck Detector to the application container.
var Module = fx.Options(
	fx.Provide(NewDetector),
)
