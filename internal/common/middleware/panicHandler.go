// Package middleware provides HTTP middleware components for request logging, timeout handling,
// and panic recovery. It integrates with zerolog for structured logging and supports request
// tracing through unique request IDs. Failures are answered with problem responses.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tansive/problemadvice/internal/common/httpx"
)

// PanicHandler creates middleware that recovers from panics in HTTP handlers. A recovered
// panic is answered with a 500 problem whose cause is the panic value; the stack trace of
// the panic is logged by the problem advice. http.ErrAbortHandler is re-panicked.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if !rw.Written() {
					httpx.SendError(rw, r, panicError(rec))
				}
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// panicError converts a recovered value into a 500 error. It must be called from the
// deferred function so that the captured stack includes the panicking frames.
func panicError(rec any) error {
	cause, ok := rec.(error)
	if !ok {
		cause = fmt.Errorf("%v", rec)
	}
	return httpx.ErrApplicationError("unable to process request").
		Wrap(errors.WithMessage(cause, "panic occurred"))
}
