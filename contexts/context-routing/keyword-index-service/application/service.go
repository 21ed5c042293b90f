package application

import (
	"context"
	"log/slog"

	"contex/contexts/context-routing/keyword-index-service/domain/entities"
	domainerrors "contex/contexts/context-routing/keyword-index-service/domain/errors"
	"contex/contexts/context-routing/keyword-index-service/ports"
	"contex/internal/platform/apperr"
)

type Service struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

func (s *Service) Index(ctx context.Context, projectID, nodeKey, text string) error {
	if projectID == "" {
		return apperr.Wrap(apperr.KindValidation, "index", domainerrors.ErrInvalidProjectID)
	}
	if nodeKey == "" {
		return apperr.Wrap(apperr.KindValidation, "index", domainerrors.ErrInvalidNodeKey)
	}
	if err := s.Repo.Index(ctx, projectID, nodeKey, text); err != nil {
		return apperr.Wrap(apperr.KindTransient, "index failed", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, projectID, nodeKey string) error {
	if err := s.Repo.Delete(ctx, projectID, nodeKey); err != nil {
		return apperr.Wrap(apperr.KindTransient, "delete failed", err)
	}
	return nil
}

func (s *Service) BM25Search(ctx context.Context, projectID, query string, topK int) ([]entities.Match, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "bm25_search", domainerrors.ErrInvalidProjectID)
	}
	if topK == 0 {
		return []entities.Match{}, nil
	}
	matches, err := s.Repo.BM25Search(ctx, projectID, query, topK)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "bm25 search failed", err)
	}
	return matches, nil
}
