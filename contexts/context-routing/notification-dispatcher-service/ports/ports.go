package ports

import (
	"context"
	"encoding/json"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
)

// Embedder is satisfied by embedding-service's Module.Service.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// NodeMirror carries the just-published node's vector so the dispatcher can
// score it against each registration's needs without importing across the
// vector-index/context-engine module boundary.
type NodeMirror struct {
	ProjectID   string
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Embedding   []float32
}

// DeliveryMirror mirrors subscription-registry-service's entities.Delivery.
type DeliveryMirror struct {
	Mode       string // "pubsub" or "webhook"
	Channel    string
	URL        string
	HMACSecret string
}

// RegistrationMirror mirrors subscription-registry-service's
// entities.AgentRegistration.
type RegistrationMirror struct {
	AgentID          string
	ProjectID        string
	Needs            []string
	Delivery         DeliveryMirror
	LastSeenSequence int64
}

// Registry is satisfied by subscription-registry-service's Module.Service,
// narrowed to what fan-out needs.
type Registry interface {
	List(ctx context.Context, projectID string) ([]RegistrationMirror, error)
	UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error
}

// Publisher hands an update to the pub/sub transport (in-process or Redis).
type Publisher interface {
	Publish(ctx context.Context, channel string, update entities.Update) error
}

// WebhookSender performs the signed HTTP POST and reports whether the
// response was retryable.
type WebhookSender interface {
	Send(ctx context.Context, url, hmacSecret string, update entities.Update) error
}

// CircuitStore tracks per-URL breaker state.
type CircuitStore interface {
	Get(url string) entities.Circuit
	RecordSuccess(url string, now time.Time) entities.Circuit
	RecordFailure(url string, now time.Time) entities.Circuit
}

// OutboxRepository durably queues webhook deliveries that exhausted retries
// while the destination's circuit was open, so a drain worker can replay
// them once the circuit recovers.
type OutboxRepository interface {
	Enqueue(ctx context.Context, entry entities.OutboxEntry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]entities.OutboxEntry, error)
	Remove(ctx context.Context, id string) error
}

// FanoutOutboxRepository durably queues whole-node fan-out candidates that
// arrived while the system was DEGRADED, so a drain worker can replay them
// once the degradation controller reports recovery.
type FanoutOutboxRepository interface {
	Enqueue(ctx context.Context, entry entities.FanoutOutboxEntry) error
	ListAll(ctx context.Context, limit int) ([]entities.FanoutOutboxEntry, error)
	Remove(ctx context.Context, id string) error
}
