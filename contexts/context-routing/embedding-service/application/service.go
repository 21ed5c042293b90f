package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	domainerrors "contex/contexts/context-routing/embedding-service/domain/errors"
	"contex/contexts/context-routing/embedding-service/ports"
	"contex/internal/platform/apperr"
)

// Service wraps a Model behind a SHA-256-keyed cache. Cache misses call the
// model inline; a model failure is fatal for the caller, never silently
// degraded to a zero vector.
type Service struct {
	Model   ports.Model
	Cache   ports.Cache
	Metrics ports.Metrics
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (s *Service) Encode(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "encode", domainerrors.ErrEmptyText)
	}

	key := hashKey(text)

	if s.Cache != nil {
		if vector, ok := s.Cache.Get(key); ok {
			if s.Metrics != nil {
				s.Metrics.ObserveHit()
			}
			return vector, nil
		}
	}

	if s.Metrics != nil {
		s.Metrics.ObserveMiss()
	}

	start := s.now()
	vector, err := s.Model.Encode(ctx, text)
	if s.Metrics != nil {
		s.Metrics.ObserveDuration(s.now().Sub(start).Seconds())
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "model encode failed", err)
	}

	if s.Cache != nil {
		s.Cache.Add(key, vector)
	}
	return vector, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func hashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
