package contextengineservice

import (
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/context-engine-service/adapters/memory"
	"contex/contexts/context-routing/context-engine-service/application"
	"contex/contexts/context-routing/context-engine-service/ports"
	"contex/internal/platform/embedpool"
)

type Module struct {
	Service *application.Service
}

type Dependencies struct {
	Embedder         ports.Embedder
	Vectors          ports.VectorIndex
	Events           ports.EventLog
	Matcher          ports.Matcher
	Registrar        ports.Registrar
	Notifier         ports.Notifier
	Idempotency      ports.Idempotency
	Degradation      ports.DegradationGate
	EmbedPoolSize    int
	DefaultTopK      int
	DefaultThreshold float64
	MaxContextChars  int
	HybridSearch     bool
	IdempotencyTTL   time.Duration
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) *Module {
	idempotency := deps.Idempotency
	if idempotency == nil {
		idempotency = memory.NewIdempotencyStore()
	}
	return &Module{
		Service: &application.Service{
			Embedder:         deps.Embedder,
			Vectors:          deps.Vectors,
			Events:           deps.Events,
			Matcher:          deps.Matcher,
			Registrar:        deps.Registrar,
			Notifier:         deps.Notifier,
			Idempotency:      idempotency,
			Degradation:      deps.Degradation,
			EmbedPool:        embedpool.New(deps.EmbedPoolSize),
			DefaultTopK:      deps.DefaultTopK,
			DefaultThreshold: deps.DefaultThreshold,
			MaxContextChars:  deps.MaxContextChars,
			HybridSearch:     deps.HybridSearch,
			IdempotencyTTL:   deps.IdempotencyTTL,
			Logger:           resolveLogger(deps.Logger),
		},
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
