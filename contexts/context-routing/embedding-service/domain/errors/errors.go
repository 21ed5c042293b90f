package errors

import "errors"

var (
	ErrEmptyText    = errors.New("embedding: text must not be empty")
	ErrEncodeFailed = errors.New("embedding: model encode failed")
)
