package subscriptionregistryservice

import (
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/adapters/memory"
	"contex/contexts/context-routing/subscription-registry-service/application"
	"contex/contexts/context-routing/subscription-registry-service/application/workers"
	"contex/contexts/context-routing/subscription-registry-service/ports"
)

type Module struct {
	Service     *application.Service
	IdleExpirer workers.IdleExpirer
}

type Dependencies struct {
	Repo    ports.Repository
	MaxIdle time.Duration
	Clock   func() time.Time
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) *Module {
	logger := resolveLogger(deps.Logger)
	svc := &application.Service{Repo: deps.Repo, Clock: deps.Clock, Logger: logger}
	return &Module{
		Service: svc,
		IdleExpirer: workers.IdleExpirer{
			Repo:    deps.Repo,
			MaxIdle: deps.MaxIdle,
			Clock:   deps.Clock,
			Logger:  logger,
		},
	}
}

func NewInMemoryModule(maxIdle time.Duration) *Module {
	return NewModule(Dependencies{Repo: memory.NewStore(), MaxIdle: maxIdle})
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
