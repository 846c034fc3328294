package advice

import (
	"github.com/tansive/problemadvice/pkg/lists"
	"github.com/tansive/problemadvice/pkg/problem"
)

// ToProblem builds the problem for err using its resolved status.
func (a *Advice) ToProblem(err error) *problem.Problem {
	return a.ToProblemWithStatus(err, a.ResolveStatus(err))
}

// ToProblemWithStatus builds the problem for err with the given status and
// the blank problem type.
func (a *Advice) ToProblemWithStatus(err error, status problem.Status) *problem.Problem {
	return a.ToProblemWithType(err, status, problem.BlankType)
}

// ToProblemWithType builds the problem for err and attaches its stack trace.
func (a *Advice) ToProblemWithType(err error, status problem.Status, typ string) *problem.Problem {
	return a.Prepare(err, status, typ).
		WithStackTrace(a.CreateStackTrace(err)).
		Build()
}

// Prepare returns a builder holding everything but the stack trace. The
// detail is the error message as-is, and the members returned by a
// Details() map[string]any method become parameters. When causal chains
// are enabled and err has a cause, the cause problem is built with its own
// resolved status.
func (a *Advice) Prepare(err error, status problem.Status, typ string) *problem.Builder {
	b := problem.NewBuilder().
		WithType(typ).
		WithTitle(status.Reason).
		WithStatus(status)
	if err == nil {
		return b
	}
	b.WithDetail(err.Error())
	if d, ok := err.(interface{ Details() map[string]any }); ok {
		for k, v := range d.Details() {
			b.With(k, v)
		}
	}
	if a.causalChains {
		if cause := a.causeOf(err); cause != nil {
			b.WithCause(a.ToProblem(cause))
		}
	}
	return b
}

// CreateStackTrace returns the stack frames of err. With causal chains
// enabled, the trailing frames err shares with its cause are removed, since
// they are rendered as part of the cause.
func (a *Advice) CreateStackTrace(err error) []problem.Frame {
	if err == nil {
		return nil
	}
	current := a.stackOf(err)
	cause := a.causeOf(err)
	if cause == nil || !a.causalChains {
		return current
	}
	return lists.TrimCommonSuffix(current, a.stackOf(cause))
}
