package advice

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tansive/problemadvice/pkg/problem"
)

// Log reports the outcome of handling err through the configured logging policy.
func (a *Advice) Log(err error, p *problem.Problem, status problem.Status) {
	a.logFunc(&a.logger, err, p, status)
}

// logOutcome is the default logging policy. Client errors are logged as
// warnings with the error message only; server errors are logged as errors
// together with the error and its full stack trace.
func (a *Advice) logOutcome(logger *zerolog.Logger, err error, _ *problem.Problem, status problem.Status) {
	switch {
	case status.Is4xxClientError():
		logger.Warn().Msgf("%s: %s", status.Reason, message(err))
	case status.Is5xxServerError():
		logger.Error().
			Err(err).
			Array("stack_trace", frameArray(a.stackOf(err))).
			Msg(status.Reason)
	}
}

// requestLogger prefers the logger carried by the request context.
func (a *Advice) requestLogger(r *http.Request) *zerolog.Logger {
	if r != nil {
		if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &a.logger
}

func message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type frameArray []problem.Frame

func (fa frameArray) MarshalZerologArray(arr *zerolog.Array) {
	for _, f := range fa {
		arr.Str(f.String())
	}
}
