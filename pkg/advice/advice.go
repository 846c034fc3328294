// Package advice translates errors raised while handling an HTTP request into
// RFC 7807 problem responses.
//
// An Advice resolves the HTTP status of an error, builds the problem document
// (optionally including the chain of causes), trims redundant stack frames,
// logs the outcome and assembles the response. Each step is a method on
// Advice and can be replaced through an Option.
//
// An Advice is immutable once created and safe for concurrent use.
package advice

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tansive/problemadvice/pkg/problem"
)

// Trait is the set of steps that turn an error into a problem response.
type Trait interface {
	ResolveStatus(err error) problem.Status
	ToProblem(err error) *problem.Problem
	CreateStackTrace(err error) []problem.Frame
	Log(err error, p *problem.Problem, status problem.Status)
	Fallback(err error, p *problem.Problem, header http.Header) *Response
	Process(rsp *Response) *Response
}

var _ Trait = (*Advice)(nil)

// StatusLookup returns the status declared by err itself, without looking at
// its causes. The boolean is false when err declares no status.
type StatusLookup func(err error) (problem.Status, bool)

// CauseFunc returns the direct cause of err, or nil.
type CauseFunc func(err error) error

// StackFunc returns the stack frames captured by err, innermost call first.
type StackFunc func(err error) []problem.Frame

// LogFunc reports the outcome of handling err.
type LogFunc func(logger *zerolog.Logger, err error, p *problem.Problem, status problem.Status)

// Processor post-processes an assembled response, e.g. to add headers.
type Processor func(rsp *Response) *Response

// Advice maps errors to problem responses.
type Advice struct {
	logger       zerolog.Logger
	causalChains bool
	lookup       StatusLookup
	causeOf      CauseFunc
	stackOf      StackFunc
	logFunc      LogFunc
	processor    Processor
	encoder      problem.Encoder
	typeBase     string
}

// Option configures an Advice.
type Option func(*Advice)

// New creates an Advice. Without options, causal chains are disabled, status
// markers are looked up through DeclaredStatus, and log output is discarded.
func New(opts ...Option) *Advice {
	a := &Advice{
		logger:  zerolog.Nop(),
		lookup:  DeclaredStatus,
		causeOf: Cause,
		stackOf: StackTrace,
	}
	a.logFunc = a.logOutcome
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithLogger sets the logger used to report handled errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Advice) { a.logger = logger }
}

// WithCausalChains enables or disables nesting cause problems into the
// problem document, and with it stack trace trimming.
func WithCausalChains(enabled bool) Option {
	return func(a *Advice) { a.causalChains = enabled }
}

// WithStatusLookup replaces the status marker lookup.
func WithStatusLookup(lookup StatusLookup) Option {
	return func(a *Advice) { a.lookup = lookup }
}

// WithRegistry consults r before the typed status interfaces.
func WithRegistry(r *Registry) Option {
	return func(a *Advice) {
		a.lookup = func(err error) (problem.Status, bool) {
			if s, ok := r.Lookup(err); ok {
				return s, true
			}
			return DeclaredStatus(err)
		}
	}
}

// WithCauseFunc replaces the function that walks the cause chain.
func WithCauseFunc(f CauseFunc) Option {
	return func(a *Advice) { a.causeOf = f }
}

// WithStackFunc replaces the function that extracts stack frames from errors.
func WithStackFunc(f StackFunc) Option {
	return func(a *Advice) { a.stackOf = f }
}

// WithLogFunc replaces the logging policy.
func WithLogFunc(f LogFunc) Option {
	return func(a *Advice) { a.logFunc = f }
}

// WithProcessor sets the hook applied to every assembled response.
func WithProcessor(p Processor) Option {
	return func(a *Advice) { a.processor = p }
}

// WithStackTraces includes stack traces in written problem documents.
func WithStackTraces(enabled bool) Option {
	return func(a *Advice) { a.encoder.StackTraces = enabled }
}

// WithProblemTypeBase sets the base URI of the problem types produced by the
// built-in problems, e.g. "https://example.com/problems". When unset those
// problems use problem.BlankType.
func WithProblemTypeBase(base string) Option {
	return func(a *Advice) { a.typeBase = base }
}

// CausalChainsEnabled reports whether cause problems are nested.
func (a *Advice) CausalChainsEnabled() bool {
	return a.causalChains
}

func (a *Advice) problemType(slug string) string {
	if a.typeBase == "" {
		return problem.BlankType
	}
	return a.typeBase + "/" + slug
}
