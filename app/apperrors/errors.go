package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick a response without parsing messages.
type Kind int

const (
	Internal Kind = iota
	NotFound
	Gone
	InvalidArgument
	StorageIOError
	Unresolvable
	Forbidden
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Gone:
		return "gone"
	case InvalidArgument:
		return "invalid_argument"
	case StorageIOError:
		return "storage_io_error"
	case Unresolvable:
		return "unresolvable"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrGone            = &Error{Kind: Gone}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrStorageIO       = &Error{Kind: StorageIOError}
	ErrUnresolvable    = &Error{Kind: Unresolvable}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrConflict        = &Error{Kind: Conflict}
)

// Error carries a message that is safe to show a user and a separate internal detail.
// The detail is what Error() returns and what gets logged; UserMessage is never derived from it.
type Error struct {
	Kind        Kind
	UserMessage string
	Detail      string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.UserMessage
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels above work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, userMessage, detail string) *Error {
	return &Error{Kind: kind, UserMessage: userMessage, Detail: detail}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, userMessage, detail string) *Error {
	return &Error{Kind: kind, UserMessage: userMessage, Detail: detail, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// UserMessage returns the user-safe message of err, or fallback when err carries none.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.UserMessage != "" {
		return e.UserMessage
	}
	return fallback
}
