package records

import (
	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
)

// Module provides the property record store and the county deadline feed.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPropertyStore,
		fx.As(new(ports.RecordStore)),
	)),
	fx.Provide(fx.Annotate(
		NewSaleDeadlineFeed,
		fx.As(new(ports.DeadlineFeed)),
	)),
)
