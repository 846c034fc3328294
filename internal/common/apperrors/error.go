// Package apperrors provides application errors that declare an HTTP status
// and capture the stack where they were created. They chain through Unwrap, so
// the problem advice resolves their status and renders each link of the chain
// as a nested cause.
package apperrors

import (
	"github.com/pkg/errors"
)

// Error defines the interface for application errors. All methods that
// return Error leave the receiver unchanged.
type Error interface {
	error
	Unwrap() error                 // the cause, or nil
	StackTrace() errors.StackTrace // stack captured at creation

	Msg(msg string) Error               // creates a new error caused by the current one
	Wrap(cause error) Error             // creates a copy caused by cause
	SetStatusCode(int) Error            // sets the HTTP status declared by the error
	StatusCode() int                    // the declared HTTP status, 0 if none
	Prefix(string) Error                // adds a prefix to the error message
	Suffix(string) Error                // adds a suffix to the error message
	Detail(key string, value any) Error // adds a problem extension member
	Details() map[string]any
}
