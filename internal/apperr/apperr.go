// Package apperr defines the typed error kinds shared across the session
// runtime so HTTP and WS handlers can map a failure to a response without
// string-matching error messages.
package apperr

import "errors"

// Kind classifies an Error for the purposes of response mapping.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindConflict    Kind = "conflict"
	KindInvalid     Kind = "invalid"
	KindUnavailable Kind = "unavailable"
	KindCorrupt     Kind = "corrupt"
)

// Error is a typed, wrappable error carrying a Kind for response mapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error    { return New(KindNotFound, message) }
func Forbidden(message string) *Error   { return New(KindForbidden, message) }
func Conflict(message string) *Error    { return New(KindConflict, message) }
func Invalid(message string) *Error     { return New(KindInvalid, message) }
func Unavailable(message string) *Error { return New(KindUnavailable, message) }
func Corrupt(message string) *Error     { return New(KindCorrupt, message) }

// Is reports whether the first *Error in err's chain carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the Kind from err's chain, or "" if err isn't an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

var (
	ErrSessionNotFound     = NotFound("session not found")
	ErrParticipantNotFound = NotFound("participant not found")
	ErrQuestionNotFound    = NotFound("question not found")
	ErrQuizNotFound        = NotFound("quiz not found")
	ErrNotHost             = Forbidden("caller is not the session host")
	ErrAlreadyAnswered     = Conflict("participant already answered this question")
	ErrSessionFull         = Conflict("session has reached its participant limit")
	ErrSessionEnded        = Conflict("session has already ended")
	ErrInvalidAnswerShape  = Invalid("answer payload does not match question type")
)
