package eventlogservice

import (
	"log/slog"

	"contex/contexts/context-routing/event-log-service/adapters/memory"
	"contex/contexts/context-routing/event-log-service/application"
	"contex/contexts/context-routing/event-log-service/ports"
)

type Module struct {
	Service *application.Service
}

type Dependencies struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: &application.Service{
			Repo:   deps.Repo,
			Logger: resolveLogger(deps.Logger),
		},
	}
}

func NewInMemoryModule() Module {
	return NewModule(Dependencies{Repo: memory.NewStore()})
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
