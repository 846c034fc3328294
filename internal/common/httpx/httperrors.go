package httpx

import (
	"net/http"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tansive/problemadvice/pkg/advice"
)

// Error is a transport level error declaring the HTTP status to answer with.
type Error struct {
	Description string
	Status      int
	cause       error
	stack       errors.StackTrace
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// StatusCode returns the HTTP status of the error.
func (e *Error) StatusCode() int {
	return e.Status
}

// Unwrap returns the error that caused e, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// StackTrace returns the stack captured when the error was created.
func (e *Error) StackTrace() errors.StackTrace {
	return e.stack
}

// Wrap returns a copy of e caused by err.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// Is reports whether target is an *Error with the same status and description.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Description == t.Description
}

// Send writes e to w as a problem response for r.
func (e *Error) Send(w http.ResponseWriter, r *http.Request) {
	SendError(w, r, e)
}

var problemAdvice atomic.Pointer[advice.Advice]

func init() {
	problemAdvice.Store(advice.New())
}

// SetProblemAdvice installs the advice used to answer handler errors.
func SetProblemAdvice(a *advice.Advice) {
	if a != nil {
		problemAdvice.Store(a)
	}
}

// ProblemAdvice returns the installed problem advice.
func ProblemAdvice() *advice.Advice {
	return problemAdvice.Load()
}

// SendError sends err as a problem response. If the error is nil, no action is taken.
func SendError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil || err == nil {
		return
	}
	ProblemAdvice().Handle(w, r, err)
}

// NotFound answers requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	SendError(w, r, ErrNotFound(r.URL.Path))
}

// MethodNotAllowed answers requests with a method the route does not serve.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	SendError(w, r, ErrReqMethodNotSupported())
}

func newError(status int, description string) *Error {
	return &Error{
		Description: description,
		Status:      status,
		stack:       callers(),
	}
}

func message(defaultMsg string, msg []string) string {
	if len(msg) > 0 {
		return msg[0]
	}
	return defaultMsg
}

// Common Errors

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return newError(http.StatusMethodNotAllowed, "request method not supported")
}

// ErrUnableToParseReqData returns an error when request data cannot be parsed.
func ErrUnableToParseReqData() *Error {
	return newError(http.StatusBadRequest, "unable to parse request data")
}

// ErrInvalidRequest returns an error for invalid request data.
// If no message is provided, a default message is used.
func ErrInvalidRequest(msg ...string) *Error {
	return newError(http.StatusBadRequest, message("invalid request data or empty request values", msg))
}

// ErrNotFound returns an error for a resource that does not exist.
func ErrNotFound(resource string) *Error {
	return newError(http.StatusNotFound, "resource not found: "+resource)
}

// ErrApplicationError returns an error for application-level failures.
// If no message is provided, a default message is used.
func ErrApplicationError(msg ...string) *Error {
	return newError(http.StatusInternalServerError, message("unable to process request", msg))
}

// ErrRequestTimeout returns an error for request timeout.
func ErrRequestTimeout() *Error {
	return newError(http.StatusRequestTimeout, "request timed out")
}

// callers captures the stack of the caller of the error constructor.
func callers() errors.StackTrace {
	var pcs [32]uintptr
	n := runtime.Callers(4, pcs[:])
	st := make(errors.StackTrace, n)
	for i, pc := range pcs[:n] {
		st[i] = errors.Frame(pc)
	}
	return st
}
