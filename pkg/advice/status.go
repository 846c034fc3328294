package advice

import (
	"github.com/pkg/errors"
	"github.com/tansive/problemadvice/pkg/problem"
)

// ResolveStatus returns the status declared by err or the nearest cause that
// declares one, and problem.InternalServerError when none does.
func (a *Advice) ResolveStatus(err error) problem.Status {
	if s, ok := a.ResolveResponseStatus(err); ok {
		return s
	}
	return problem.InternalServerError
}

// ResolveResponseStatus looks for a declared status on err and then on each
// of its causes in turn. It reports false if no error in the chain declares one.
func (a *Advice) ResolveResponseStatus(err error) (problem.Status, bool) {
	for e := err; e != nil; e = a.causeOf(e) {
		if s, ok := a.lookup(e); ok {
			return s, true
		}
	}
	return problem.Status{}, false
}

// DeclaredStatus is the default StatusLookup. It accepts errors exposing
// StatusCode() int or HTTPStatus() int; methods promoted from an embedded
// type count as declared by the error. Codes <= 0 mean "not declared".
func DeclaredStatus(err error) (problem.Status, bool) {
	var code int
	switch e := err.(type) {
	case interface{ StatusCode() int }:
		code = e.StatusCode()
	case interface{ HTTPStatus() int }:
		code = e.HTTPStatus()
	}
	if code <= 0 {
		return problem.Status{}, false
	}
	return problem.StatusOf(code), true
}

// Cause is the default CauseFunc. It follows Unwrap() error, then the
// pkg/errors Cause() error, then the first error of Unwrap() []error.
func Cause(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Cause() error }:
		return e.Cause()
	case interface{ Unwrap() []error }:
		if errs := e.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// StackTrace is the default StackFunc. It reads the stack captured by errors
// following the pkg/errors StackTrace() contract; other errors have none.
func StackTrace(err error) []problem.Frame {
	st, ok := err.(interface{ StackTrace() errors.StackTrace })
	if !ok {
		return nil
	}
	return problem.FramesOf(st.StackTrace())
}
