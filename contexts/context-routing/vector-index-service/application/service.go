package application

import (
	"context"
	"log/slog"

	"contex/contexts/context-routing/vector-index-service/domain/entities"
	domainerrors "contex/contexts/context-routing/vector-index-service/domain/errors"
	"contex/contexts/context-routing/vector-index-service/ports"
	"contex/internal/platform/apperr"
)

type Service struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

func (s *Service) Upsert(ctx context.Context, node entities.ContextNode) error {
	if node.ProjectID == "" {
		return apperr.Wrap(apperr.KindValidation, "upsert", domainerrors.ErrInvalidProjectID)
	}
	if node.NodeKey == "" {
		return apperr.Wrap(apperr.KindValidation, "upsert", domainerrors.ErrInvalidNodeKey)
	}
	if len(node.Embedding) == 0 {
		return apperr.Wrap(apperr.KindValidation, "upsert", domainerrors.ErrEmptyEmbedding)
	}
	if err := s.Repo.Upsert(ctx, node); err != nil {
		return apperr.Wrap(apperr.KindTransient, "upsert failed", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, projectID, nodeKey string) error {
	if projectID == "" {
		return apperr.Wrap(apperr.KindValidation, "delete", domainerrors.ErrInvalidProjectID)
	}
	if nodeKey == "" {
		return apperr.Wrap(apperr.KindValidation, "delete", domainerrors.ErrInvalidNodeKey)
	}
	if err := s.Repo.Delete(ctx, projectID, nodeKey); err != nil {
		return apperr.Wrap(apperr.KindTransient, "delete failed", err)
	}
	return nil
}

// Search returns candidates ordered by descending similarity, tie-broken by
// node_key ascending, filtered to similarity >= threshold. top_k == 0
// returns an empty slice without error.
func (s *Service) Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]entities.Match, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "search", domainerrors.ErrInvalidProjectID)
	}
	if topK == 0 {
		return []entities.Match{}, nil
	}
	matches, err := s.Repo.Search(ctx, projectID, queryEmbedding, topK, threshold)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "search failed", err)
	}
	return matches, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]entities.ContextNode, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "list", domainerrors.ErrInvalidProjectID)
	}
	nodes, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "list failed", err)
	}
	return nodes, nil
}
