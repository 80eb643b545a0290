package workers

import (
	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
)

// Module provides the default worker invoker binding.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingInvoker,
		fx.As(new(ports.WorkerInvoker)),
	)),
)
