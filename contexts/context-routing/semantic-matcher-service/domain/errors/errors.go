package errors

import "errors"

var (
	ErrInvalidProjectID = errors.New("semantic matcher: project_id must not be empty")
	ErrNoQueries        = errors.New("semantic matcher: at least one query is required")
)
