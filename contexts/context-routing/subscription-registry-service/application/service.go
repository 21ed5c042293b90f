package application

import (
	"context"
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/domain/entities"
	domainerrors "contex/contexts/context-routing/subscription-registry-service/domain/errors"
	"contex/contexts/context-routing/subscription-registry-service/ports"
	"contex/internal/platform/apperr"
)

type Service struct {
	Repo   ports.Repository
	Clock  func() time.Time
	Logger *slog.Logger
}

// Register validates and persists an agent's interest declaration.
// Re-registering the same (project_id, agent_id) replaces the prior
// registration wholesale, LastSeenSequence included: the stored value is
// the caller's supplied one (zero when unset) — callers that want to
// preserve catch-up position must read it via Get first.
func (s *Service) Register(ctx context.Context, reg entities.AgentRegistration) (entities.AgentRegistration, error) {
	if reg.AgentID == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidAgentID)
	}
	if reg.ProjectID == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidProjectID)
	}
	if len(reg.Needs) == 0 {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrNoNeeds)
	}
	if reg.Delivery.Mode == entities.DeliveryModePubSub && reg.Delivery.Channel == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidDelivery)
	}
	if reg.Delivery.Mode == entities.DeliveryModeWebhook && reg.Delivery.URL == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidDelivery)
	}

	now := s.now()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	saved, err := s.Repo.Register(ctx, reg)
	if err != nil {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindTransient, "register persist failed", err)
	}

	s.logger().Info("agent registered",
		"event", "subscription_registered",
		"module", "context-routing/subscription-registry-service",
		"layer", "application",
		"project_id", reg.ProjectID,
		"agent_id", reg.AgentID,
		"need_count", len(reg.Needs),
	)
	return saved, nil
}

func (s *Service) Unregister(ctx context.Context, projectID, agentID string) error {
	if projectID == "" {
		return apperr.Wrap(apperr.KindValidation, "unregister", domainerrors.ErrInvalidProjectID)
	}
	if agentID == "" {
		return apperr.Wrap(apperr.KindValidation, "unregister", domainerrors.ErrInvalidAgentID)
	}
	if err := s.Repo.Unregister(ctx, projectID, agentID); err != nil {
		return apperr.Wrap(apperr.KindTransient, "unregister failed", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, projectID, agentID string) (entities.AgentRegistration, error) {
	if projectID == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "get", domainerrors.ErrInvalidProjectID)
	}
	if agentID == "" {
		return entities.AgentRegistration{}, apperr.Wrap(apperr.KindValidation, "get", domainerrors.ErrInvalidAgentID)
	}
	reg, err := s.Repo.Get(ctx, projectID, agentID)
	if err != nil {
		return entities.AgentRegistration{}, err
	}
	return reg, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]entities.AgentRegistration, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "list", domainerrors.ErrInvalidProjectID)
	}
	regs, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "list failed", err)
	}
	return regs, nil
}

func (s *Service) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	if err := s.Repo.UpdateLastSeenSequence(ctx, projectID, agentID, sequence); err != nil {
		return apperr.Wrap(apperr.KindTransient, "update last seen sequence failed", err)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
