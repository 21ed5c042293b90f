package application_test

import (
	"context"
	"testing"

	"contex/contexts/context-routing/vector-index-service/adapters/memory"
	"contex/contexts/context-routing/vector-index-service/application"
	"contex/contexts/context-routing/vector-index-service/domain/entities"
)

func TestSearchIncludesExactThresholdMatch(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	vector := []float32{1, 0, 0}
	if err := svc.Upsert(ctx, entities.ContextNode{ProjectID: "p", NodeKey: "n1", Embedding: vector}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := svc.Search(ctx, "p", vector, 10, 1.0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match at exact threshold, got %d", len(matches))
	}
}

func TestSearchTopKZeroReturnsEmpty(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	if err := svc.Upsert(ctx, entities.ContextNode{ProjectID: "p", NodeKey: "n1", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := svc.Search(ctx, "p", []float32{1, 0, 0}, 0, 0.0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches for top_k=0, got %d", len(matches))
	}
}

func TestSearchTiesBreakByNodeKeyAscending(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	vector := []float32{1, 0, 0}
	for _, key := range []string{"zeta", "alpha", "mu"} {
		if err := svc.Upsert(ctx, entities.ContextNode{ProjectID: "p", NodeKey: key, Embedding: vector}); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}

	matches, err := svc.Search(ctx, "p", vector, 10, 0.0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	for i, want := range []string{"alpha", "mu", "zeta"} {
		if matches[i].NodeKey != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, matches[i].NodeKey)
		}
	}
}
