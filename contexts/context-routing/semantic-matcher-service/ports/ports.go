package ports

import (
	"context"
	"encoding/json"
)

// Embedder is satisfied directly by embedding-service's Module.Service.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// VectorMatch mirrors vector-index-service's entities.Match without
// importing across the module boundary.
type VectorMatch struct {
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Similarity  float64
}

// VectorSearcher is satisfied by vector-index-service's Module.Service.
type VectorSearcher interface {
	Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]VectorMatch, error)
}

// KeywordMatch mirrors keyword-index-service's entities.Match.
type KeywordMatch struct {
	NodeKey string
	Score   float64
}

// KeywordSearcher is satisfied by keyword-index-service's Module.Service.
// Optional: a nil KeywordSearcher disables hybrid mode regardless of the
// hybrid flag on a query.
type KeywordSearcher interface {
	BM25Search(ctx context.Context, projectID, query string, topK int) ([]KeywordMatch, error)
}
