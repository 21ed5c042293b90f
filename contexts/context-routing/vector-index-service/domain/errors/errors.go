package errors

import "errors"

var (
	ErrInvalidProjectID = errors.New("vector index: project_id must not be empty")
	ErrInvalidNodeKey   = errors.New("vector index: node_key must not be empty")
	ErrEmptyEmbedding   = errors.New("vector index: embedding must not be empty")
)
