// Package errp provides error helpers that attach a caller stack trace,
// so a failure deep in a flash transaction can still be traced back to the
// stage that triggered it.
package errp

import (
	"fmt"
	"runtime"
)

// StackError wraps an error together with the call stack captured at the
// point it was created or wrapped.
type StackError struct {
	msg   string
	stack []uintptr
	cause error
}

// Error implements the error interface.
func (e *StackError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap allows errors.Is/errors.As to see through a StackError.
func (e *StackError) Unwrap() error {
	return e.cause
}

// Stack returns the call stack captured when this error was created.
func (e *StackError) Stack() []uintptr {
	return e.stack
}

func callers() []uintptr {
	const depth = 32
	pc := make([]uintptr, depth)
	n := runtime.Callers(3, pc)
	return pc[:n]
}

// New creates a new error with a captured stack trace.
func New(msg string) error {
	return &StackError{msg: msg, stack: callers()}
}

// Newf creates a new formatted error with a captured stack trace.
func Newf(format string, args ...interface{}) error {
	return &StackError{msg: fmt.Sprintf(format, args...), stack: callers()}
}

// WithStack wraps err with a captured stack trace, preserving err for
// errors.Is/errors.As. Returns nil if err is nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*StackError); ok {
		return err
	}
	return &StackError{msg: err.Error(), cause: err, stack: callers()}
}
