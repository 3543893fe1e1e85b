package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error so callers can react without parsing
// messages.
type Kind string

// Error kinds.
const (
	KindAuthorization Kind = "authorization"
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindPersistence   Kind = "persistence"
)

// Error is the structured error returned by every Service operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrUnauthorized)
// works for any authorization error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels.
var (
	ErrUnauthorized   = &Error{Kind: KindAuthorization, Message: "caller may not manage events"}
	ErrInvalidOutcome = &Error{Kind: KindValidation, Message: "invalid outcome"}
	ErrEventBusy      = &Error{Kind: KindConflict, Message: "event is being processed"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPersistence    = &Error{Kind: KindPersistence, Message: "persistence failure"}
)

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" if err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
