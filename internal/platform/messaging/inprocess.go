// Package messaging carries delivery of notification-dispatcher updates to
// subscribed agents. Broker is the in-process fan-out used by the standalone
// deployment mode; RedisBroker backs multi-process deployments.
package messaging

import (
	"context"
	"log/slog"
	"sync"

	"contex/internal/shared/events"
)

// Broker is an in-process channel-based publish/subscribe bus keyed by
// channel name (an agent's delivery channel, e.g. "agent:<agent_id>").
// Messages for a slow subscriber are dropped rather than blocking the
// publisher, matching a dispatcher that must stay responsive to every
// other agent.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan events.Envelope
	logger      *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subscribers: make(map[string][]chan events.Envelope),
		logger:      logger,
	}
}

func (b *Broker) Publish(ctx context.Context, channel string, event events.Envelope) error {
	b.mu.RLock()
	subs := append([]chan events.Envelope(nil), b.subscribers[channel]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "broker_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"channel", channel,
					"event_id", event.EventID,
				)
			}
		}
	}

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "broker_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"channel", channel,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string, handler func(context.Context, events.Envelope) error) error {
	ch := make(chan events.Envelope, 128)

	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(channel, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("subscriber handler failed",
						"event", "broker_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"channel", channel,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Broker) removeSubscriber(channel string, target chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[channel]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan events.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[channel] = filtered
}
