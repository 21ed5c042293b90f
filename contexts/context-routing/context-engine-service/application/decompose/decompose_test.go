package decompose_test

import (
	"testing"

	"contex/contexts/context-routing/context-engine-service/application/decompose"
	"contex/contexts/context-routing/context-engine-service/domain/entities"
)

func TestNodesDecomposesJSONArrayIntoOneNodePerElement(t *testing.T) {
	req := entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1,"name":"a"},{"id":2,"name":"b"}]`),
	}
	drafts, err := decompose.Nodes(req)
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d: %+v", len(drafts), drafts)
	}
	if drafts[0].NodeKey != "users#[0]" || drafts[1].NodeKey != "users#[1]" {
		t.Fatalf("unexpected node keys: %+v", drafts)
	}
}

func TestNodesUsesExplicitDescriptionForScalarPayload(t *testing.T) {
	req := entities.PublishRequest{
		ProjectID: "p", DataKey: "status", Format: entities.FormatJSON,
		Raw: []byte(`"online"`), Description: "service health status",
	}
	drafts, err := decompose.Nodes(req)
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Description != "service health status" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestNodesDecomposesCSVIntoOneNodePerRow(t *testing.T) {
	req := entities.PublishRequest{
		ProjectID: "p", DataKey: "inventory", Format: entities.FormatCSV,
		Raw: []byte("sku,qty\nA1,5\nB2,9\n"),
	}
	drafts, err := decompose.Nodes(req)
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 row drafts, got %d", len(drafts))
	}
}

func TestNodesTextFormatYieldsSingleNode(t *testing.T) {
	req := entities.PublishRequest{
		ProjectID: "p", DataKey: "note", Format: entities.FormatText,
		Raw: []byte("deployment completed successfully"),
	}
	drafts, err := decompose.Nodes(req)
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if len(drafts) != 1 || drafts[0].NodeKey != "note" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}
