package errors

import "errors"

var (
	ErrInvalidProjectID = errors.New("keyword index: project_id must not be empty")
	ErrInvalidNodeKey   = errors.New("keyword index: node_key must not be empty")
)
