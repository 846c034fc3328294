package apperrors

import (
	"fmt"
	"io"
	"maps"
	"runtime"

	"github.com/pkg/errors"
)

const maxStackDepth = 32

// appError implements the apperrors.Error interface.
type appError struct {
	msg        string
	cause      error
	statuscode int
	prefix     string
	suffix     string
	details    map[string]any
	stack      errors.StackTrace
}

// Error returns the message including prefix and suffix if set.
func (e *appError) Error() string {
	msg := e.msg
	if e.prefix != "" {
		msg = e.prefix + ": " + msg
	}
	if e.suffix != "" {
		msg = msg + ": " + e.suffix
	}
	return msg
}

// Unwrap returns the cause for errors.Is / errors.As.
func (e *appError) Unwrap() error {
	return e.cause
}

// StackTrace returns the stack captured when the error was created.
func (e *appError) StackTrace() errors.StackTrace {
	return e.stack
}

// Msg creates a new error with a new message, caused by e.
// The new error inherits the status code from e.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		cause:      e,
		statuscode: e.statuscode,
		stack:      callers(),
	}
}

// Wrap returns a copy of e caused by cause, with the stack of the caller.
func (e *appError) Wrap(cause error) Error {
	cp := e.clone()
	cp.cause = cause
	cp.stack = callers()
	return cp
}

// Prefix returns a copy with an updated prefix.
func (e *appError) Prefix(p string) Error {
	cp := e.clone()
	cp.prefix = p
	return cp
}

// Suffix returns a copy with an updated suffix.
func (e *appError) Suffix(s string) Error {
	cp := e.clone()
	cp.suffix = s
	return cp
}

// SetStatusCode returns a copy with an updated status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := e.clone()
	cp.statuscode = code
	return cp
}

// StatusCode returns the declared HTTP status code.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// Detail returns a copy carrying an additional detail. Details become
// members of the problem document built for the error.
func (e *appError) Detail(key string, value any) Error {
	cp := e.clone()
	cp.details[key] = value
	return cp
}

// Details returns a copy of the details of the error.
func (e *appError) Details() map[string]any {
	return maps.Clone(e.details)
}

// Format prints the stack trace with %+v.
func (e *appError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, e.Error())
			e.stack.Format(s, verb)
			if e.cause != nil {
				fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func (e *appError) clone() *appError {
	cp := *e
	cp.details = maps.Clone(e.details)
	if cp.details == nil {
		cp.details = map[string]any{}
	}
	return &cp
}

// New creates a root-level error with the given message.
func New(msg string) Error {
	return &appError{
		msg:   msg,
		stack: callers(),
	}
}

// Wrap creates an error with the given message caused by err.
// It returns nil if err is nil.
func Wrap(err error, msg string) Error {
	if err == nil {
		return nil
	}
	return &appError{
		msg:   msg,
		cause: err,
		stack: callers(),
	}
}

// callers captures the stack of the caller of the exported constructor.
func callers() errors.StackTrace {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	st := make(errors.StackTrace, n)
	for i, pc := range pcs[:n] {
		st[i] = errors.Frame(pc)
	}
	return st
}
