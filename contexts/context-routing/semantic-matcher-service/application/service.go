package application

import (
	"context"
	"log/slog"
	"sort"

	"contex/contexts/context-routing/semantic-matcher-service/domain/entities"
	domainerrors "contex/contexts/context-routing/semantic-matcher-service/domain/errors"
	"contex/contexts/context-routing/semantic-matcher-service/ports"
	"contex/internal/platform/apperr"
)

const defaultRRFK = 60

// Service implements spec §4.4's per-query algorithm: embed, vector-search,
// optionally fuse with BM25 via Reciprocal Rank Fusion, re-apply the
// similarity threshold, truncate and order.
type Service struct {
	Embedder  ports.Embedder
	Vectors   ports.VectorSearcher
	Keywords  ports.KeywordSearcher // nil disables hybrid mode entirely
	SemWeight float64               // w_sem, default 0.3
	KwWeight  float64               // w_kw, default 0.7
	RRFK      int                   // default 60
	Logger    *slog.Logger
}

// Query runs the matcher over every need string and returns, per need
// index, its ranked matches.
func (s *Service) Query(ctx context.Context, projectID string, queries []string, topK int, threshold float64, hybrid bool) (map[int][]entities.Match, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "query", domainerrors.ErrInvalidProjectID)
	}
	if len(queries) == 0 {
		return nil, apperr.Wrap(apperr.KindValidation, "query", domainerrors.ErrNoQueries)
	}

	result := make(map[int][]entities.Match, len(queries))
	for i, q := range queries {
		matches, err := s.queryOne(ctx, projectID, q, topK, threshold, hybrid)
		if err != nil {
			return nil, err
		}
		for j := range matches {
			matches[j].NeedIndex = i
		}
		result[i] = matches
	}
	return result, nil
}

func (s *Service) queryOne(ctx context.Context, projectID, query string, topK int, threshold float64, hybrid bool) ([]entities.Match, error) {
	if topK == 0 {
		return []entities.Match{}, nil
	}

	vector, err := s.Embedder.Encode(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "embed query failed", err)
	}

	vectorMatches, err := s.Vectors.Search(ctx, projectID, vector, topK*2, threshold)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "vector search failed", err)
	}

	if !hybrid || s.Keywords == nil {
		return s.finalize(toMatches(vectorMatches), topK, threshold), nil
	}

	keywordMatches, err := s.Keywords.BM25Search(ctx, projectID, query, topK*2)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "keyword search failed", err)
	}

	fused := s.fuse(vectorMatches, keywordMatches)
	return s.finalize(fused, topK, threshold), nil
}

// fuse combines vector and keyword result sets via Reciprocal Rank Fusion:
// rrf(rank) = 1/(k + rank), normalized against the best possible rank-1
// score so each component contributes in [0,1] before weighting.
func (s *Service) fuse(vectorMatches []ports.VectorMatch, keywordMatches []ports.KeywordMatch) []entities.Match {
	k := s.rrfK()
	semWeight, kwWeight := s.weights()

	byNode := make(map[string]*entities.Match)
	order := make([]string, 0, len(vectorMatches)+len(keywordMatches))

	for rank, m := range vectorMatches {
		entry := ensure(byNode, &order, m.NodeKey)
		entry.DataKey = m.DataKey
		entry.Description = m.Description
		entry.Payload = m.Payload
		entry.Similarity = m.Similarity
		entry.Score += semWeight * rrfComponent(rank+1, k)
	}

	for rank, m := range keywordMatches {
		entry := ensure(byNode, &order, m.NodeKey)
		entry.Score += kwWeight * rrfComponent(rank+1, k)
	}

	matches := make([]entities.Match, 0, len(order))
	for _, nodeKey := range order {
		matches = append(matches, *byNode[nodeKey])
	}
	return matches
}

func ensure(byNode map[string]*entities.Match, order *[]string, nodeKey string) *entities.Match {
	if entry, ok := byNode[nodeKey]; ok {
		return entry
	}
	entry := &entities.Match{NodeKey: nodeKey}
	byNode[nodeKey] = entry
	*order = append(*order, nodeKey)
	return entry
}

func rrfComponent(rank, k int) float64 {
	return float64(k+1) / float64(k+rank)
}

// finalize re-applies threshold to the similarity component, not the fused
// score, so a keyword-only match (Similarity left at zero by fuse) is
// dropped even though its fused score can still be high. It then truncates
// to top_k and orders by descending score then node_key ascending.
func (s *Service) finalize(matches []entities.Match, topK int, threshold float64) []entities.Match {
	filtered := make([]entities.Match, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= threshold {
			filtered = append(filtered, m)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		scoreI, scoreJ := rankingScore(filtered[i]), rankingScore(filtered[j])
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		return filtered[i].NodeKey < filtered[j].NodeKey
	})

	if topK > 0 && len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

// rankingScore is Score when fusion populated it (hybrid path), or
// Similarity otherwise (pure vector path, where Score is never set).
func rankingScore(m entities.Match) float64 {
	if m.Score != 0 {
		return m.Score
	}
	return m.Similarity
}

func toMatches(vectorMatches []ports.VectorMatch) []entities.Match {
	matches := make([]entities.Match, 0, len(vectorMatches))
	for _, m := range vectorMatches {
		matches = append(matches, entities.Match{
			NodeKey:     m.NodeKey,
			DataKey:     m.DataKey,
			Description: m.Description,
			Payload:     m.Payload,
			Similarity:  m.Similarity,
		})
	}
	return matches
}

func (s *Service) rrfK() int {
	if s.RRFK > 0 {
		return s.RRFK
	}
	return defaultRRFK
}

func (s *Service) weights() (float64, float64) {
	sem, kw := s.SemWeight, s.KwWeight
	if sem == 0 && kw == 0 {
		return 0.3, 0.7
	}
	return sem, kw
}
