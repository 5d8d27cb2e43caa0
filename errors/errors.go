// Package errors builds errors annotated with the file and line of the
// call site, so failures deep in a tool handler or transport can be traced
// without stack traces. Wrapped errors keep their cause chain, so sentinel
// errors defined by other packages still match with stdlib errors.Is.
package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Is reports whether any error in err's chain matches target. It forwards
// to the standard library so callers need only one errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library's errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// Mark annotates err with a sentinel so callers can match the sentinel with
// errors.Is while the original cause stays in the message.
func Mark(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("[%s] %w: %v", caller(), sentinel, err)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
