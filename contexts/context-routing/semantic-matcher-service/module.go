package semanticmatcherservice

import (
	"log/slog"
	"os"

	"contex/contexts/context-routing/semantic-matcher-service/application"
	"contex/contexts/context-routing/semantic-matcher-service/ports"
)

// Module exposes the semantic matcher's wired application service.
type Module struct {
	Service *application.Service
}

// Dependencies lists everything the matcher needs from the rest of the
// system. Vectors is required; Keywords is optional and disables hybrid
// mode when nil.
type Dependencies struct {
	Embedder  ports.Embedder
	Vectors   ports.VectorSearcher
	Keywords  ports.KeywordSearcher
	SemWeight float64
	KwWeight  float64
	RRFK      int
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) *Module {
	return &Module{
		Service: &application.Service{
			Embedder:  deps.Embedder,
			Vectors:   deps.Vectors,
			Keywords:  deps.Keywords,
			SemWeight: deps.SemWeight,
			KwWeight:  deps.KwWeight,
			RRFK:      deps.RRFK,
			Logger:    resolveLogger(deps.Logger),
		},
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
