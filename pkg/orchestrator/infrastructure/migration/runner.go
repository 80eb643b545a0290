// Package migration applies the embedded schema migrations at startup.
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const moduleName = "migration"

// EmbeddedMigrations is the migration file tree, typically passed from
// main.go via go:embed. Files live under migrations/<driver>/.
type EmbeddedMigrations fs.FS

// Run applies all pending migrations for the configured driver. A failed
// migration aborts startup; running against an already current schema is a no-op.
func Run(db *gorm.DB, cfg *config.Config, files EmbeddedMigrations) error {
	sqlDB, err := db.DB()
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to unwrap sql.DB", err)
	}

	var driver migratedb.Driver
	switch cfg.Database.Type {
	case "postgres":
		driver, err = migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	case "mysql":
		driver, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	case "sqlite":
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	default:
		return exception.Newf(moduleName, exception.KindInvalidInput, "unsupported database type %q", cfg.Database.Type)
	}
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to initialize migration driver", err)
	}

	source, err := iofs.New(files, fmt.Sprintf("migrations/%s", cfg.Database.Type))
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to open embedded migrations", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, cfg.Database.Name, driver)
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to initialize migrator", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return exception.Wrap(moduleName, exception.KindInternal, "migration failed", err)
	}
	logger.Infof("Schema migrations applied (%s)", cfg.Database.Type)
	return nil
}
