package models

import "errors"

// ErrNotFound reports an unknown thread or message id. Callers reject the
// request synchronously; nothing is enqueued.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or illegal input (for example a retry
// on a message that is not in error state). It is rejected synchronously
// with no state change and no job enqueued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation builds a ValidationError from a plain reason string.
func Validation(reason string) error { return &ValidationError{Reason: reason} }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
