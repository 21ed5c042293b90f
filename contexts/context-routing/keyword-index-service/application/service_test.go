package application_test

import (
	"context"
	"testing"

	"contex/contexts/context-routing/keyword-index-service/adapters/memory"
	"contex/contexts/context-routing/keyword-index-service/application"
)

func TestBM25SearchRanksMoreRelevantDocHigher(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	if err := svc.Index(ctx, "p", "users", "users table columns id email created"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := svc.Index(ctx, "p", "weather", "current weather forecast temperature"); err != nil {
		t.Fatalf("index: %v", err)
	}

	matches, err := svc.BM25Search(ctx, "p", "users table schema", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) == 0 || matches[0].NodeKey != "users" {
		t.Fatalf("expected users to rank first, got %+v", matches)
	}
}

func TestBM25SearchTopKZeroReturnsEmpty(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	matches, err := svc.BM25Search(context.Background(), "p", "anything", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected empty result, got %d", len(matches))
	}
}
