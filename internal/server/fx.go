package server

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(NewEngine, NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)
