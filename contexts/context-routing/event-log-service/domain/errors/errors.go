package errors

import "errors"

var (
	ErrInvalidProjectID = errors.New("event log: project_id must not be empty")
	ErrInvalidEventType = errors.New("event log: unrecognized event_type")
	ErrInvalidLimit     = errors.New("event log: limit must be between 1 and 1000")
)
