package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"contex/contexts/context-routing/vector-index-service/domain/entities"
)

// Store performs an exact cosine scan per search, the fallback spec §4.3
// explicitly permits for small projects. Keyed by (project_id, node_key).
type Store struct {
	mu    sync.RWMutex
	nodes map[string]map[string]entities.ContextNode
}

func NewStore() *Store {
	return &Store{nodes: make(map[string]map[string]entities.ContextNode)}
}

func (s *Store) Upsert(_ context.Context, node entities.ContextNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.nodes[node.ProjectID]
	if !ok {
		byKey = make(map[string]entities.ContextNode)
		s.nodes[node.ProjectID] = byKey
	}
	byKey[node.NodeKey] = node
	return nil
}

func (s *Store) Delete(_ context.Context, projectID, nodeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byKey, ok := s.nodes[projectID]; ok {
		delete(byKey, nodeKey)
	}
	return nil
}

func (s *Store) Search(_ context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]entities.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.nodes[projectID]
	candidates := make([]entities.Match, 0, len(byKey))
	for _, node := range byKey {
		similarity := cosineSimilarity(queryEmbedding, node.Embedding)
		if similarity < threshold {
			continue
		}
		candidates = append(candidates, entities.Match{
			NodeKey:     node.NodeKey,
			DataKey:     node.DataKey,
			Description: node.Description,
			Payload:     node.Payload,
			Similarity:  similarity,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].NodeKey < candidates[j].NodeKey
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *Store) List(_ context.Context, projectID string) ([]entities.ContextNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.nodes[projectID]
	nodes := make([]entities.ContextNode, 0, len(byKey))
	for _, node := range byKey {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeKey < nodes[j].NodeKey })
	return nodes, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
