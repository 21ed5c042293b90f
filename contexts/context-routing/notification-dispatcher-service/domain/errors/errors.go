package errors

import "errors"

var (
	ErrInvalidAgentID  = errors.New("notification dispatcher: agent_id must not be empty")
	ErrNoDestination   = errors.New("notification dispatcher: delivery has neither a pub/sub channel nor a webhook url")
	ErrCircuitOpen      = errors.New("notification dispatcher: circuit breaker open for destination")
	ErrPermanentFailure = errors.New("notification dispatcher: webhook destination rejected the delivery")
)
