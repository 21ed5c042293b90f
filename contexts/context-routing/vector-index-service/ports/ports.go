package ports

import (
	"context"

	"contex/contexts/context-routing/vector-index-service/domain/entities"
)

// Repository owns ContextNodes exclusively; the event log is the source of
// truth and this index is a materialized projection over it.
type Repository interface {
	Upsert(ctx context.Context, node entities.ContextNode) error
	Delete(ctx context.Context, projectID, nodeKey string) error
	Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]entities.Match, error)
	List(ctx context.Context, projectID string) ([]entities.ContextNode, error)
}
