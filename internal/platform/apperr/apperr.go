// Package apperr defines the error taxonomy shared by every context-routing
// service and maps it to transport-level outcomes (HTTP status, Retry-After).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is one of the taxonomy classes named by the routing engine spec.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindTransient
	KindPermanent
	KindDelivery
	KindCancelled
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient_backend_error"
	case KindPermanent:
		return "permanent_backend_error"
	case KindDelivery:
		return "delivery_failure"
	case KindCancelled:
		return "cancelled"
	case KindUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a taxonomy Kind and an optional Retry-After hint.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Transient(message string, cause error, retryAfter time.Duration) *Error {
	return &Error{Kind: KindTransient, Message: message, Cause: cause, RetryAfter: retryAfter}
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the status code the (externally owned) API
// surface is expected to return. Kept here because the taxonomy, not the
// HTTP surface, is in scope of the core.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindPermanent:
		return http.StatusInternalServerError
	case KindCancelled:
		return 499
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the caller's own internal retry loop (not an
// external client) should attempt the operation again.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Kind {
	case KindTransient, KindDelivery:
		return true
	default:
		return false
	}
}
