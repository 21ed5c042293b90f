package ports

import (
	"context"

	"contex/contexts/context-routing/keyword-index-service/domain/entities"
)

// Repository indexes the same payload text the vector index embeds; it
// only participates in matching when hybrid mode is enabled.
type Repository interface {
	Index(ctx context.Context, projectID, nodeKey, text string) error
	Delete(ctx context.Context, projectID, nodeKey string) error
	BM25Search(ctx context.Context, projectID, query string, topK int) ([]entities.Match, error)
}
