package entities

import (
	"encoding/json"
	"time"
)

// DataFormat names the wire format a publisher declared for a payload.
type DataFormat string

const (
	FormatJSON DataFormat = "json"
	FormatYAML DataFormat = "yaml"
	FormatTOML DataFormat = "toml"
	FormatXML  DataFormat = "xml"
	FormatCSV  DataFormat = "csv"
	FormatText DataFormat = "text"
)

// PublishRequest is one publisher call: a project-scoped data_key mapped to
// a raw payload in a declared format, with an optional human description.
type PublishRequest struct {
	ProjectID      string
	TenantID       string
	DataKey        string
	Format         DataFormat
	Raw            []byte
	Description    string
	IdempotencyKey string
}

// IdempotencyRecord lets a retried publish() call with the same key replay
// the original result instead of decomposing and appending a second time.
type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload json.RawMessage
	ExpiresAt       time.Time
}

// NodeDraft is one decomposed unit of a published payload, before
// embedding. NodeKey is DataKey alone for a payload that doesn't decompose,
// or DataKey+"#"+Path for a nested unit beyond the configured depth.
type NodeDraft struct {
	NodeKey     string
	Path        string
	Description string
	Payload     json.RawMessage
}

// PublishResult summarizes what publish() did, for the caller (and for
// E1-style end-to-end assertions) to inspect.
type PublishResult struct {
	ProjectID string
	DataKey   string
	NodeKeys  []string
	Sequence  int64
	CreatedAt time.Time
}

// MatchedUpdate bundles a single need's ranked matches for query()'s
// response shape, after any configured context-size truncation.
type MatchedUpdate struct {
	Need    string
	Matches []QueryMatch
}

// QueryMatch is one ranked result returned to a caller of query().
type QueryMatch struct {
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Similarity  float64
	Score       float64
}
