package application_test

import (
	"context"
	"testing"

	"contex/contexts/context-routing/embedding-service/adapters/memory"
	"contex/contexts/context-routing/embedding-service/application"
)

func TestEncodeIsDeterministic(t *testing.T) {
	cache, err := memory.NewLRUCache(100)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	svc := &application.Service{Model: memory.NewHashModel(), Cache: cache}

	first, err := svc.Encode(context.Background(), "database schema and tables")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := svc.Encode(context.Background(), "database schema and tables")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("vector length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("vector element %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestEncodeRejectsEmptyText(t *testing.T) {
	svc := &application.Service{Model: memory.NewHashModel()}
	if _, err := svc.Encode(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}
