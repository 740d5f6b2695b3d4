// Package apperr provides the typed errors RunMonkey surfaces to API clients.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies where an error originated and how the API reports it.
type Kind string

const (
	KindUnknownMetric Kind = "unknown_metric"
	KindTransport     Kind = "transport_error"
	KindConfiguration Kind = "configuration_error"
	KindValidation    Kind = "validation_error"
	KindNotFound      Kind = "not_found"
	KindDuplicate     Kind = "duplicate"
	KindUnauthorized  Kind = "unauthorized"
)

// Error is a typed error that can be surfaced to API clients without leaking backend details.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a typed error.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func UnknownMetric(name string) *Error {
	return New(KindUnknownMetric, fmt.Sprintf("unknown metric %q", name), nil)
}

func Transport(message string, err error) *Error {
	return New(KindTransport, message, err)
}

func Configuration(message string) *Error {
	return New(KindConfiguration, message, nil)
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err carries a typed error of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}
