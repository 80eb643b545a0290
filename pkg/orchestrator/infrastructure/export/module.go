package export

import (
	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
)

// Module provides the parquet snapshot exporter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSnapshotExporter,
		fx.As(new(usecase.SnapshotExporter)),
	)),
)
