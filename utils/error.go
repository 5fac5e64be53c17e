package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError means the caller sent bad input; correct and resubmit.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IllegalStateError means the operation was refused and state is unchanged
// (e.g. mutating a finalized budget, finalizing a not-ready budget).
type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string { return e.Message }

func NewIllegalStateError(message string) error {
	return &IllegalStateError{Message: message}
}

func IsIllegalStateError(err error) bool {
	var v *IllegalStateError
	return errors.As(err, &v)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
