package database

import (
	"go.uber.org/fx"
)

// Module provides the gorm database connection.
var Module = fx.Options(
	fx.Provide(NewGormDB),
)
