package http

// ErrorResponse is the wire shape for every failed call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PublishRequest is the wire shape for publish(). Data carries the payload:
// a JSON value for the json format, or a string already encoded in the
// declared format for every other format.
type PublishRequest struct {
	ProjectID   string `json:"project_id"`
	TenantID    string `json:"tenant_id,omitempty"`
	DataKey     string `json:"data_key"`
	Format      string `json:"format"`
	Data        any    `json:"data"`
	Description string `json:"description,omitempty"`
}

type PublishResponse struct {
	ProjectID string   `json:"project_id"`
	DataKey   string   `json:"data_key"`
	NodeKeys  []string `json:"node_keys"`
	Sequence  int64    `json:"sequence"`
}

type QueryRequest struct {
	ProjectID string   `json:"project_id"`
	Needs     []string `json:"needs"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
}

type QueryMatchDTO struct {
	NodeKey     string  `json:"node_key"`
	DataKey     string  `json:"data_key"`
	Description string  `json:"description"`
	Payload     any     `json:"data"`
	Similarity  float64 `json:"similarity"`
	Score       float64 `json:"score,omitempty"`
}

type QueryResponse struct {
	Matches map[string][]QueryMatchDTO `json:"matches"`
}

type DeliveryDTO struct {
	Mode       string `json:"mode"`
	Channel    string `json:"channel,omitempty"`
	URL        string `json:"url,omitempty"`
	HMACSecret string `json:"hmac_secret,omitempty"`
}

type RegisterRequest struct {
	ProjectID string      `json:"project_id"`
	AgentID   string      `json:"agent_id"`
	Needs     []string    `json:"needs"`
	Delivery  DeliveryDTO `json:"delivery"`
}

type RegisterResponse struct {
	AgentID          string                     `json:"agent_id"`
	ProjectID        string                     `json:"project_id"`
	LastSeenSequence int64                      `json:"last_seen_sequence"`
	InitialContext   map[string][]QueryMatchDTO `json:"initial_context"`
}

type EventDTO struct {
	Sequence  int64  `json:"sequence"`
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
	CreatedAt int64  `json:"created_at"`
}

type EventsResponse struct {
	Events []EventDTO `json:"events"`
}
