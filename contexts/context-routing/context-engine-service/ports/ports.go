package ports

import (
	"context"
	"encoding/json"
	"time"

	"contex/contexts/context-routing/context-engine-service/domain/entities"
)

// Idempotency lets publish() dedup retried calls that carry the same
// caller-supplied key, replaying the first call's recorded result instead
// of decomposing and appending a second time.
type Idempotency interface {
	Get(ctx context.Context, key string, now time.Time) (entities.IdempotencyRecord, bool, error)
	Put(ctx context.Context, record entities.IdempotencyRecord) error
}

// Embedder is satisfied by embedding-service's Module.Service.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is satisfied by vector-index-service's Module.Service.
type VectorIndex interface {
	Upsert(ctx context.Context, projectID, nodeKey, dataKey, description string, payload json.RawMessage, embedding []float32) error
	Delete(ctx context.Context, projectID, nodeKey string) error
}

// EventLog is satisfied by event-log-service's Module.Service.
type EventLog interface {
	Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (int64, error)
	Read(ctx context.Context, projectID string, since int64, limit int) ([]EventMirror, error)
	Length(ctx context.Context, projectID string) (int64, error)
}

// EventMirror mirrors event-log-service's entities.Event.
type EventMirror struct {
	Sequence      int64
	EventType     string
	Payload       json.RawMessage
	CreatedAtUnix int64
}

// MatchMirror mirrors semantic-matcher-service's entities.Match.
type MatchMirror struct {
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Similarity  float64
	Score       float64
}

// Matcher is satisfied by semantic-matcher-service's Module.Service.
type Matcher interface {
	Query(ctx context.Context, projectID string, queries []string, topK int, threshold float64, hybrid bool) (map[int][]MatchMirror, error)
}

// DeliveryMirror mirrors subscription-registry-service's entities.Delivery.
type DeliveryMirror struct {
	Mode       string
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

// Registrar is satisfied by subscription-registry-service's Module.Service.
type Registrar interface {
	Register(ctx context.Context, reg RegistrationMirror) (RegistrationMirror, error)
	Unregister(ctx context.Context, projectID, agentID string) error
	Get(ctx context.Context, projectID, agentID string) (RegistrationMirror, error)
	UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error
}

// NodeMirror mirrors notification-dispatcher-service's ports.NodeMirror.
type NodeMirror struct {
	ProjectID   string
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Embedding   []float32
}

// Notifier is satisfied by notification-dispatcher-service's Module.Service.
type Notifier interface {
	NotifyNewNode(ctx context.Context, node NodeMirror, sequence int64) error

	// DeferFanout queues a node's fan-out instead of running it inline, for
	// use while the degradation controller reports DEGRADED: the log stays
	// authoritative and the fan-out replays once the controller recovers.
	DeferFanout(ctx context.Context, node NodeMirror, sequence int64) error
}

// DegradationGate is satisfied by degradation-controller-service's
// Module.Service, narrowed to the one read every publish/register/dispatch
// decision needs.
type DegradationGate interface {
	Mode() string
}
