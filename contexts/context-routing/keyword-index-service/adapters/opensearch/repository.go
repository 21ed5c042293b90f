package opensearchadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	opensearch "github.com/opensearch-project/opensearch-go/v2"

	"contex/contexts/context-routing/keyword-index-service/domain/entities"
)

const indexName = "contex-data"

// Repository is the production BM25 backend: a text field per node, mapped
// the way hybrid_search.py's _ensure_index_exists configures its index,
// minus the kNN mapping (vector search lives in the Postgres/pgvector
// adapter, not duplicated here).
type Repository struct {
	client *opensearch.Client
	logger *slog.Logger
}

func NewRepository(url string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("new opensearch client: %w", err)
	}
	repo := &Repository{client: client, logger: logger}
	if err := repo.ensureIndex(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) ensureIndex(ctx context.Context) error {
	exists, err := r.client.Indices.Exists([]string{indexName}, r.client.Indices.Exists.WithContext(ctx))
	if err == nil && exists != nil && exists.StatusCode == 200 {
		return nil
	}

	body := `{
		"settings": {"number_of_shards": 1, "number_of_replicas": 0},
		"mappings": {"properties": {
			"project_id": {"type": "keyword"},
			"node_key": {"type": "keyword"},
			"text": {"type": "text"}
		}}
	}`
	_, err = r.client.Indices.Create(indexName,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(strings.NewReader(body)),
	)
	return err
}

func (r *Repository) Index(ctx context.Context, projectID, nodeKey, text string) error {
	doc := map[string]string{"project_id": projectID, "node_key": nodeKey, "text": text}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = r.client.Index(
		indexName,
		bytes.NewReader(payload),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(documentID(projectID, nodeKey)),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		r.logError("keyword_index_index_failed", err, "project_id", projectID, "node_key", nodeKey)
	}
	return err
}

func (r *Repository) Delete(ctx context.Context, projectID, nodeKey string) error {
	_, err := r.client.Delete(
		indexName,
		documentID(projectID, nodeKey),
		r.client.Delete.WithContext(ctx),
	)
	return err
}

func (r *Repository) BM25Search(ctx context.Context, projectID, query string, topK int) ([]entities.Match, error) {
	searchBody := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"must":   map[string]any{"match": map[string]any{"text": query}},
				"filter": map[string]any{"term": map[string]any{"project_id": projectID}},
			},
		},
	}
	payload, err := json.Marshal(searchBody)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(indexName),
		r.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, r.logError("keyword_index_search_failed", err, "project_id", projectID)
	}
	defer resp.Body.Close()

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					NodeKey string `json:"node_key"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	matches := make([]entities.Match, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		matches = append(matches, entities.Match{NodeKey: hit.Source.NodeKey, Score: hit.Score})
	}
	return matches, nil
}

func documentID(projectID, nodeKey string) string {
	return projectID + ":" + nodeKey
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "keyword-index-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("keyword index repository operation failed", fields...)
	return err
}
