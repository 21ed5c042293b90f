package ports

import (
	"context"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/domain/entities"
)

// Repository persists agent registrations. Register replaces any existing
// registration for the same (project_id, agent_id) atomically.
type Repository interface {
	Register(ctx context.Context, reg entities.AgentRegistration) (entities.AgentRegistration, error)
	Unregister(ctx context.Context, projectID, agentID string) error
	Get(ctx context.Context, projectID, agentID string) (entities.AgentRegistration, error)
	List(ctx context.Context, projectID string) ([]entities.AgentRegistration, error)
	// UpdateLastSeenSequence advances the high-water mark after a
	// successful delivery or catch-up snapshot.
	UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error
	// ExpireIdle removes registrations whose UpdatedAt is older than
	// olderThan and returns how many were removed.
	ExpireIdle(ctx context.Context, olderThan time.Time) (int, error)
}
