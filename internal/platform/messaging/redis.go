package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	contractsv1 "contex/contracts/gen/events/v1"
	"contex/internal/shared/events"
)

// RedisBroker backs the notification-dispatcher's pub/sub delivery mode when
// agents connect to a different process than the one handling publishes.
// Unlike the in-process Broker, it crosses a real wire boundary, so it
// marshals the canonical versioned contract envelope rather than the
// in-process one.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBroker(url string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisBroker{client: redis.NewClient(opts), logger: logger}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, event events.Envelope) error {
	wire, err := toContractEnvelope(event)
	if err != nil {
		return fmt.Errorf("convert envelope: %w", err)
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string, handler func(context.Context, events.Envelope) error) error {
	sub := b.client.Subscribe(ctx, channel)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var wire contractsv1.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
					if b.logger != nil {
						b.logger.Error("redis message decode failed",
							"event", "redis_broker_decode_failed",
							"module", "internal/platform/messaging",
							"layer", "platform",
							"channel", channel,
							"error", err.Error(),
						)
					}
					continue
				}
				event, err := fromContractEnvelope(wire)
				if err != nil {
					if b.logger != nil {
						b.logger.Error("redis envelope payload decode failed",
							"event", "redis_broker_payload_decode_failed",
							"module", "internal/platform/messaging",
							"layer", "platform",
							"channel", channel,
							"error", err.Error(),
						)
					}
					continue
				}
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("redis subscriber handler failed",
						"event", "redis_broker_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"channel", channel,
						"event_id", event.EventID,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

// toContractEnvelope maps the in-process envelope onto the generated,
// backward-compatible contract the rest of the fleet decodes. PartitionKey
// lets consumers outside this module shard without knowing this service's
// Go types.
func toContractEnvelope(event events.Envelope) (contractsv1.Envelope, error) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return contractsv1.Envelope{}, err
	}
	return contractsv1.Envelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAtUTC,
		SourceService:    event.SourceService,
		TraceID:          event.CorrelationID,
		SchemaVersion:    event.PayloadVersion,
		PartitionKeyPath: event.EntityType,
		PartitionKey:     event.EntityID,
		Data:             data,
	}, nil
}

func fromContractEnvelope(wire contractsv1.Envelope) (events.Envelope, error) {
	var payload any
	if len(wire.Data) > 0 {
		if err := json.Unmarshal(wire.Data, &payload); err != nil {
			return events.Envelope{}, err
		}
	}
	return events.Envelope{
		EventID:        wire.EventID,
		EventType:      wire.EventType,
		SourceService:  wire.SourceService,
		OccurredAtUTC:  wire.OccurredAt,
		CorrelationID:  wire.TraceID,
		EntityType:     wire.PartitionKeyPath,
		EntityID:       wire.PartitionKey,
		PayloadVersion: wire.SchemaVersion,
		Payload:        payload,
	}, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
