package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"contex/contexts/context-routing/event-log-service/domain/entities"
	domainerrors "contex/contexts/context-routing/event-log-service/domain/errors"
	"contex/contexts/context-routing/event-log-service/ports"
	"contex/internal/platform/apperr"
)

var validEventTypes = map[string]bool{
	entities.EventTypeDataPublished:     true,
	entities.EventTypeAgentRegistered:   true,
	entities.EventTypeAgentUnregistered: true,
	entities.EventTypeDataDeleted:       true,
}

// Service validates inputs and delegates sequencing to the Repository. It
// never recovers an append failure: a failed append must never be followed
// by an index write or a dispatch.
type Service struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

func (s *Service) Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (entities.Event, error) {
	if projectID == "" {
		return entities.Event{}, apperr.Wrap(apperr.KindValidation, "append", domainerrors.ErrInvalidProjectID)
	}
	if !validEventTypes[eventType] {
		return entities.Event{}, apperr.Wrap(apperr.KindValidation, "append", domainerrors.ErrInvalidEventType)
	}

	event, err := s.Repo.Append(ctx, projectID, tenantID, eventType, payload)
	if err != nil {
		return entities.Event{}, apperr.Wrap(apperr.KindTransient, "append failed", err)
	}

	if s.Logger != nil {
		s.Logger.Info("event appended",
			"event", "event_log_appended",
			"module", "event-log-service",
			"layer", "application",
			"project_id", projectID,
			"event_type", eventType,
			"sequence", event.Sequence,
		)
	}
	return event, nil
}

func (s *Service) Read(ctx context.Context, projectID string, since int64, limit int) ([]entities.Event, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "read", domainerrors.ErrInvalidProjectID)
	}
	if limit <= 0 || limit > entities.MaxReadLimit {
		return nil, apperr.Wrap(apperr.KindValidation, "read", domainerrors.ErrInvalidLimit)
	}
	if since < 0 {
		since = 0
	}

	events, err := s.Repo.Read(ctx, projectID, since, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "read failed", err)
	}
	return events, nil
}

func (s *Service) Length(ctx context.Context, projectID string) (int64, error) {
	if projectID == "" {
		return 0, apperr.Wrap(apperr.KindValidation, "length", domainerrors.ErrInvalidProjectID)
	}
	length, err := s.Repo.Length(ctx, projectID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "length failed", err)
	}
	return length, nil
}
