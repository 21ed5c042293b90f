package errors

import "errors"

var (
	ErrInvalidProjectID    = errors.New("context engine: project_id must not be empty")
	ErrInvalidDataKey      = errors.New("context engine: data_key must not be empty")
	ErrEmptyPayload        = errors.New("context engine: payload must not be empty")
	ErrUnsupportedFormat   = errors.New("context engine: unsupported data format")
	ErrInvalidAgentID      = errors.New("context engine: agent_id must not be empty")
	ErrIdempotencyConflict = errors.New("context engine: idempotency key reused with a different payload")
	ErrServiceUnavailable  = errors.New("context engine: event log backend unhealthy, mutating operations fail fast")
)
