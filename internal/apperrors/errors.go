package apperrors

import "errors"

// Kind classifies an operation failure so callers can branch on the failure
// class instead of matching message strings.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindIO           Kind = "io"
	KindInconsistent Kind = "inconsistent_state"
)

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

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func IO(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// Inconsistent marks the case where a physical operation succeeded but the
// paired catalog write failed (or vice versa); the mirror invariant no longer
// holds for the affected rows and an operator needs to reconcile.
func Inconsistent(message string, err error) *Error {
	return &Error{Kind: KindInconsistent, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or "" for untagged errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf returns the human message carried by err, or err.Error() for
// untagged errors.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
