package degradationcontrollerservice

import (
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/degradation-controller-service/adapters/memory"
	"contex/contexts/context-routing/degradation-controller-service/application"
	"contex/contexts/context-routing/degradation-controller-service/ports"
)

type Module struct {
	Service *application.Service
}

type Dependencies struct {
	Probes []ports.Prober
	Store  ports.SnapshotStore
	Clock  func() time.Time
	Logger *slog.Logger
}

func NewModule(deps Dependencies) *Module {
	store := deps.Store
	if store == nil {
		store = memory.NewStore()
	}
	return &Module{
		Service: &application.Service{
			Probes: deps.Probes,
			Store:  store,
			Clock:  deps.Clock,
			Logger: resolveLogger(deps.Logger),
		},
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
