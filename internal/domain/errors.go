package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Kind classifies failures so the transport layer can pick a status code.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is the result type returned by the material core.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Err: err}
}

func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
