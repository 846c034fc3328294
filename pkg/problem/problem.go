// Package problem defines the RFC 7807 problem document used to report errors
// to HTTP clients, together with its builder and JSON wire format.
//
// A Problem is immutable once built; all accessors return copies of internal
// slices and maps.
package problem

import (
	"maps"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// BlankType is the default problem type. It indicates that the problem has no
// semantics beyond those of its HTTP status code.
const BlankType = "about:blank"

// Problem is a structured, machine-readable error document. A Problem is also
// an error, so handlers can return one directly.
type Problem struct {
	typ        string
	title      string
	status     *Status
	detail     string
	instance   string
	cause      *Problem
	parameters map[string]any
	stackTrace []Frame
}

// Type returns the problem type URI.
func (p *Problem) Type() string { return p.typ }

// Title returns the short, human-readable summary of the problem type.
func (p *Problem) Title() string { return p.title }

// Status returns the status of the problem, or nil if none was set.
func (p *Problem) Status() *Status {
	if p.status == nil {
		return nil
	}
	s := *p.status
	return &s
}

// Detail returns the explanation specific to this occurrence. May be empty.
func (p *Problem) Detail() string { return p.detail }

// Instance returns the URI reference of this occurrence. May be empty.
func (p *Problem) Instance() string { return p.instance }

// Cause returns the nested problem of the underlying cause, or nil.
func (p *Problem) Cause() *Problem { return p.cause }

// Parameters returns a copy of the extension members of the problem.
func (p *Problem) Parameters() map[string]any {
	if len(p.parameters) == 0 {
		return nil
	}
	return maps.Clone(p.parameters)
}

// Parameter returns a single extension member.
func (p *Problem) Parameter(key string) (any, bool) {
	v, ok := p.parameters[key]
	return v, ok
}

// StackTrace returns a copy of the stack trace attached to the problem.
func (p *Problem) StackTrace() []Frame {
	return slices.Clone(p.stackTrace)
}

// StatusCode returns the numeric status code, or 0 if the problem has no status.
func (p *Problem) StatusCode() int {
	if p.status == nil {
		return 0
	}
	return p.status.Code
}

// Error implements the error interface. The message is the title, followed by
// the detail when one is present.
func (p *Problem) Error() string {
	if p.detail == "" {
		return p.title
	}
	if p.title == "" {
		return p.detail
	}
	return p.title + ": " + p.detail
}

// Unwrap returns the cause problem so errors.Is / errors.As can walk the chain.
func (p *Problem) Unwrap() error {
	if p.cause == nil {
		return nil
	}
	return p.cause
}

// DecodeParameters decodes the extension members into out, which must be a
// pointer to a struct or map. Struct fields are matched using `mapstructure` tags.
func (p *Problem) DecodeParameters(out any) error {
	return mapstructure.Decode(p.parameters, out)
}
