package api

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the HTTP handlers and server, bound to the application
// lifecycle.
var Module = fx.Options(
	fx.Provide(NewJobsHandler),
	fx.Provide(NewPlanningHandler),
	fx.Provide(NewSessionsHandler),
	fx.Provide(NewServer),

	fx.Invoke(func(lc fx.Lifecycle, server *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return server.Start(ctx) },
			OnStop:  func(ctx context.Context) error { return server.Stop(ctx) },
		})
	}),
)
