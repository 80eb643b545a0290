package migration

import (
	"go.uber.org/fx"
)

// Module runs the schema migrations during container construction, before
// anything touches the tables.
var Module = fx.Options(
	fx.Invoke(Run),
)
