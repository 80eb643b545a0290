// Package database opens the orchestrator's gorm connection, selecting the
// driver from configuration.
package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const moduleName = "database"

// dialectorFor builds the gorm dialector for the configured driver.
func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, exception.Newf(moduleName, exception.KindInvalidInput, "unsupported database type %q", cfg.Type)
	}
}

// NewGormDB opens the orchestrator database.
func NewGormDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		// Duplicate-key violations from the assignment uniqueness index must
		// surface as gorm.ErrDuplicatedKey regardless of driver.
		TranslateError: true,
	})
	if err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to open database", err)
	}
	logger.Infof("Database connection established (%s)", cfg.Database.Type)
	return db, nil
}
