package main

import (
	"context"
	"io/fs"

	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/adapter/storage"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/analyzer"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/api"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/bottleneck"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	config "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/database"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/export"
	inframetrics "github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/metrics"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/migration"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/records"
	sqlRepo "github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/repository/sql"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/infrastructure/workers"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/planner"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/queue"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/session"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// GetApplicationOptions builds the uber-fx options for the orchestrator.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, migrations fs.FS) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, fx.Provide(func() migration.EmbeddedMigrations {
		return migration.EmbeddedMigrations(migrations)
	}))

	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, database.Module)
	options = append(options, migration.Module)
	options = append(options, sqlRepo.Module)
	options = append(options, records.Module)
	options = append(options, workers.Module)
	options = append(options, inframetrics.Module)
	options = append(options, storage.Module)
	options = append(options, export.Module)

	options = append(options, analyzer.Module)
	options = append(options, queue.Module)
	options = append(options, planner.Module)
	options = append(options, bottleneck.Module)
	options = append(options, usecase.Module)
	options = append(options, session.Module)
	options = append(options, api.Module)

	return options
}
