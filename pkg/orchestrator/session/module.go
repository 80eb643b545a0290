package session

import (
	"go.uber.org/fx"
)

// Module provides the session Tracker to the application container.
var Module = fx.Options(
	fx.Provide(NewTracker),
)
