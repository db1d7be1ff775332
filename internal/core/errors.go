package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to the HTTP layer.
type Kind string

const (
	KindInvalidArgument       Kind = "invalid_argument"
	KindNotFound              Kind = "not_found"
	KindDataAccessFailure     Kind = "data_access_failure"
	KindUnexpectedEmptyResult Kind = "unexpected_empty_result"
)

// Error is the single typed error every layer returns to the transport.
// Message is safe to show to clients; Err keeps the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, &core.Error{Kind: core.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func InvalidArgument(op, message string, cause error) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: message, Err: cause}
}

func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func DataAccessFailure(op string, cause error) *Error {
	return &Error{Kind: KindDataAccessFailure, Op: op, Message: "internal server error", Err: cause}
}

func UnexpectedEmptyResult(op string) *Error {
	return &Error{Kind: KindUnexpectedEmptyResult, Op: op, Message: "internal server error"}
}

// KindOf returns the kind of err. Untyped errors count as data access failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDataAccessFailure
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
