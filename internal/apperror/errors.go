package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so transports can map them to a status.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindRetrieval     Kind = "RETRIEVAL_ERROR"
	KindProcessing    Kind = "PROCESSING_ERROR"
	KindIndexing      Kind = "INDEXING_ERROR"
	KindConfiguration Kind = "CONFIGURATION_ERROR"
)

// Error is the service error type. Op names the failing step, Err is the cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. A kinded error matches the sentinel of its own kind,
// and so does any error that wraps it.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRetrieval     = &Error{Kind: KindRetrieval}
	ErrProcessing    = &Error{Kind: KindProcessing}
	ErrIndexing      = &Error{Kind: KindIndexing}
	ErrConfiguration = &Error{Kind: KindConfiguration}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Validation(op, message string) *Error {
	return newError(KindValidation, op, message, nil)
}

func Retrieval(op, message string, err error) *Error {
	return newError(KindRetrieval, op, message, err)
}

func Processing(op, message string, err error) *Error {
	return newError(KindProcessing, op, message, err)
}

func Indexing(op, message string, err error) *Error {
	return newError(KindIndexing, op, message, err)
}

func Configuration(op, message string) *Error {
	return newError(KindConfiguration, op, message, nil)
}

// KindOf returns the kind of the outermost *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of the outermost *Error in the chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

// StatusCode maps an error to an HTTP status code. A retrieval failure
// anywhere in the chain is a 502, whatever wraps it.
func StatusCode(err error) int {
	if errors.Is(err, ErrRetrieval) {
		return http.StatusBadGateway
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindIndexing:
		return http.StatusUnprocessableEntity
	case KindProcessing, KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
