// This file defines the fixed set of error kinds every package in this
// module returns. Each is a distinct string-backed constant so callers can
// compare with == or errors.Is instead of matching on message text.

package errors

import (
	"fmt"
)

type CoreError string

const ErrNotMounted = CoreError("not mounted")
const ErrNotFound = CoreError("no such file or directory")
const ErrAlreadyExists = CoreError("file exists")
const ErrNotADirectory = CoreError("not a directory")
const ErrNotEmpty = CoreError("directory not empty")
const ErrReadOnly = CoreError("read-only file system")
const ErrNoSpace = CoreError("no space left on device")
const ErrNoSlots = CoreError("too many open files")
const ErrInvalidArgument = CoreError("invalid argument")
const ErrDeviceError = CoreError("input/output error")
const ErrCorrupt = CoreError("file system structure corrupted")

func (e CoreError) Error() string {
	return string(e)
}

func (e CoreError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		originalError: e,
	}
}

func (e CoreError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}
