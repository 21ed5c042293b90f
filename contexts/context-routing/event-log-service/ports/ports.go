package ports

import (
	"context"
	"encoding/json"

	"contex/contexts/context-routing/event-log-service/domain/entities"
)

// Repository is the durable append-only store. Append must allocate the
// next sequence for project_id atomically under concurrent writers.
type Repository interface {
	Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (entities.Event, error)
	Read(ctx context.Context, projectID string, since int64, limit int) ([]entities.Event, error)
	Length(ctx context.Context, projectID string) (int64, error)
}
