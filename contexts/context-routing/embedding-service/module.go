package embeddingservice

import (
	"log/slog"

	"contex/contexts/context-routing/embedding-service/adapters/memory"
	"contex/contexts/context-routing/embedding-service/application"
	"contex/contexts/context-routing/embedding-service/ports"
)

// Module is the composed, ready-to-use embedding service: a Model behind an
// LRU cache with hit/miss/duration metrics.
type Module struct {
	Service *application.Service
}

type Dependencies struct {
	Model   ports.Model
	Cache   ports.Cache
	Metrics ports.Metrics
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: &application.Service{
			Model:   deps.Model,
			Cache:   deps.Cache,
			Metrics: deps.Metrics,
			Logger:  resolveLogger(deps.Logger),
		},
	}
}

// NewInMemoryModule wires the deterministic hash model with a bounded LRU
// cache and no metrics registration, for tests and the embedded/standalone
// deployment mode.
func NewInMemoryModule(cacheSize int) Module {
	cache, err := memory.NewLRUCache(cacheSize)
	if err != nil {
		cache = nil
	}
	return NewModule(Dependencies{
		Model: memory.NewHashModel(),
		Cache: cache,
	})
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
