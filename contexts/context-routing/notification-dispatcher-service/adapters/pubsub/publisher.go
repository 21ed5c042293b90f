package pubsub

import (
	"context"
	"time"

	"github.com/google/uuid"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
	"contex/internal/shared/events"
)

// Transport is satisfied by both messaging.Broker and messaging.RedisBroker.
type Transport interface {
	Publish(ctx context.Context, channel string, event events.Envelope) error
}

// Publisher wraps a Transport, converting a matched update into the shared
// event envelope before handing it to pub/sub delivery.
type Publisher struct {
	Transport Transport
}

func (p *Publisher) Publish(ctx context.Context, channel string, update entities.Update) error {
	envelope := events.Envelope{
		EventID:        uuid.NewString(),
		EventType:      "data_published",
		SourceService:  "notification-dispatcher-service",
		OccurredAtUTC:  time.Now().UTC(),
		EntityType:     "context_node",
		EntityID:       update.NodeKey,
		PayloadVersion: 1,
		Payload:        update,
	}
	return p.Transport.Publish(ctx, channel, envelope)
}
