// Package errors defines the error taxonomy shared by blockdev, fat12,
// ramdisk, and vfs. Every kind is a distinct value so callers can compare
// against it directly instead of parsing messages.
package errors

import "fmt"

// DriverError is the error interface produced by every package in this
// module. It composes the standard error interface with a couple of
// chaining helpers so a low-level kind (e.g. ErrNotFound) can pick up
// context as it propagates without losing its identity.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
