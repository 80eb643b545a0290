package analyzer

import (
	"go.uber.org/fx"
)

// Module provides the GapAnalyzer to the application container.
var Module = fx.Options(
	fx.Provide(NewGapAnalyzer),
)
