package domain

import "errors"

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// Error is an operator-facing failure. Anything that is not an *Error is
// treated as internal by the HTTP layer.
type Error struct {
	Kind    ErrorKind
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string, details any) error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
