package application_test

import (
	"context"
	"testing"

	"contex/contexts/context-routing/semantic-matcher-service/application"
	"contex/contexts/context-routing/semantic-matcher-service/ports"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeVectorSearcher struct {
	matches []ports.VectorMatch
}

func (f fakeVectorSearcher) Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]ports.VectorMatch, error) {
	out := make([]ports.VectorMatch, 0, len(f.matches))
	for _, m := range f.matches {
		if m.Similarity >= threshold {
			out = append(out, m)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

type fakeKeywordSearcher struct {
	matches []ports.KeywordMatch
}

func (f fakeKeywordSearcher) BM25Search(ctx context.Context, projectID, query string, topK int) ([]ports.KeywordMatch, error) {
	out := f.matches
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func TestQueryReturnsVectorMatchesInSimilarityOrder(t *testing.T) {
	svc := &application.Service{
		Embedder: fakeEmbedder{},
		Vectors: fakeVectorSearcher{matches: []ports.VectorMatch{
			{NodeKey: "b", Similarity: 0.7},
			{NodeKey: "a", Similarity: 0.9},
		}},
	}

	result, err := svc.Query(context.Background(), "p", []string{"need a thing"}, 10, 0.5, false)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	matches := result[0]
	if len(matches) != 2 || matches[0].NodeKey != "a" || matches[1].NodeKey != "b" {
		t.Fatalf("unexpected order: %+v", matches)
	}
}

func TestQueryRejectsEmptyQueries(t *testing.T) {
	svc := &application.Service{Embedder: fakeEmbedder{}, Vectors: fakeVectorSearcher{}}
	if _, err := svc.Query(context.Background(), "p", nil, 10, 0.5, false); err == nil {
		t.Fatal("expected error for empty queries")
	}
}

func TestQueryTopKZeroReturnsEmptyPerNeed(t *testing.T) {
	svc := &application.Service{Embedder: fakeEmbedder{}, Vectors: fakeVectorSearcher{}}
	result, err := svc.Query(context.Background(), "p", []string{"need"}, 0, 0.5, false)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(result[0]) != 0 {
		t.Fatalf("expected empty, got %+v", result[0])
	}
}

func TestQueryHybridDropsKeywordOnlyMatchBelowThreshold(t *testing.T) {
	svc := &application.Service{
		Embedder: fakeEmbedder{},
		Vectors: fakeVectorSearcher{matches: []ports.VectorMatch{
			{NodeKey: "vector-hit", Similarity: 0.95},
		}},
		Keywords: fakeKeywordSearcher{matches: []ports.KeywordMatch{
			{NodeKey: "keyword-hit", Score: 5.0},
			{NodeKey: "vector-hit", Score: 1.0},
		}},
	}

	result, err := svc.Query(context.Background(), "p", []string{"need"}, 10, 0.5, true)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	matches := result[0]
	// keyword-hit never cleared the vector search, so its similarity
	// component is still zero; re-applying threshold to that component
	// drops it even though its fused score is the highest of the two.
	if len(matches) != 1 || matches[0].NodeKey != "vector-hit" {
		t.Fatalf("expected only vector-hit to survive threshold filtering, got %+v", matches)
	}
}

func TestQueryHybridKeepsKeywordOnlyMatchWhenThresholdAllowsIt(t *testing.T) {
	svc := &application.Service{
		Embedder: fakeEmbedder{},
		Vectors: fakeVectorSearcher{matches: []ports.VectorMatch{
			{NodeKey: "vector-hit", Similarity: 0.95},
		}},
		Keywords: fakeKeywordSearcher{matches: []ports.KeywordMatch{
			{NodeKey: "keyword-hit", Score: 5.0},
			{NodeKey: "vector-hit", Score: 1.0},
		}},
	}

	result, err := svc.Query(context.Background(), "p", []string{"need"}, 10, 0, true)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	matches := result[0]
	if len(matches) != 2 {
		t.Fatalf("expected both nodes fused when threshold lets keyword-only matches through, got %+v", matches)
	}
	// vector-hit appears in both result sets so its fused score must exceed
	// the keyword-only node's.
	if matches[0].NodeKey != "vector-hit" {
		t.Fatalf("expected vector-hit ranked first, got %+v", matches)
	}
}
