package entities

import (
	"encoding/json"
	"time"
)

// CircuitState mirrors the CLOSED/OPEN/HALF_OPEN machine guarding each
// webhook endpoint independently, keyed by URL.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// Circuit tracks one endpoint's health.
type Circuit struct {
	URL             string
	State           CircuitState
	FailureCount    int
	SuccessCount    int
	LastFailureAt   time.Time
	LastStateChange time.Time
}

// Update carries a matched change to a single agent. It is the payload
// handed to both pub/sub publishers and webhook POST bodies, matching the
// wire format's data_update/initial_context shape.
type Update struct {
	Type       string          `json:"type"`
	AgentID    string          `json:"agent_id"`
	ProjectID  string          `json:"project_id"`
	NeedIndex  int             `json:"-"`
	Need       string          `json:"matched_need"`
	NodeKey    string          `json:"node_key"`
	DataKey    string          `json:"data_key"`
	Similarity float64         `json:"similarity"`
	Payload    json.RawMessage `json:"data"`
	Sequence   int64           `json:"sequence"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OutboxEntry is a durably queued delivery awaiting a webhook retry or a
// drain after the destination's circuit recovers.
type OutboxEntry struct {
	ID          string
	AgentID     string
	ProjectID   string
	URL         string
	HMACSecret  string
	Update      Update
	Attempts    int
	NextAttempt time.Time
	CreatedAt   time.Time
}

// FanoutOutboxEntry is a whole-node fan-out candidate deferred while the
// degradation controller reported DEGRADED, replayed by re-running the
// node's fan-out once the controller recovers to NORMAL.
type FanoutOutboxEntry struct {
	ID          string
	ProjectID   string
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Embedding   []float32
	Sequence    int64
	CreatedAt   time.Time
}
