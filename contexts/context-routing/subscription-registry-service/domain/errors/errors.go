package errors

import "errors"

var (
	ErrInvalidAgentID    = errors.New("subscription registry: agent_id must not be empty")
	ErrInvalidProjectID  = errors.New("subscription registry: project_id must not be empty")
	ErrNoNeeds           = errors.New("subscription registry: at least one need is required")
	ErrInvalidDelivery   = errors.New("subscription registry: delivery mode requires a channel or a webhook url")
	ErrRegistrationNotFound = errors.New("subscription registry: registration not found")
)
