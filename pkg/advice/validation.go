package advice

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tansive/problemadvice/pkg/problem"
)

// ConstraintViolationTitle is the title of constraint violation problems.
const ConstraintViolationTitle = "Constraint Violation"

// Violation describes a single failed validation constraint.
type Violation struct {
	Field   string `json:"field" mapstructure:"field"`
	Message string `json:"message" mapstructure:"message"`
}

// ConstraintViolation builds a 400 problem listing the failed constraints of
// verrs in a "violations" parameter. err is the error being handled and
// provides the stack trace.
func (a *Advice) ConstraintViolation(err error, verrs validator.ValidationErrors) *problem.Problem {
	violations := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, Violation{
			Field:   fieldPath(fe),
			Message: violationMessage(fe),
		})
	}
	status := problem.StatusOf(http.StatusBadRequest)
	return problem.NewBuilder().
		WithType(a.problemType("constraint-violation")).
		WithTitle(ConstraintViolationTitle).
		WithStatus(status).
		With("violations", violations).
		WithStackTrace(a.CreateStackTrace(err)).
		Build()
}

// fieldPath drops the name of the top-level struct from the namespace,
// e.g. "Order.Items[0].Quantity" becomes "Items[0].Quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return "must satisfy " + fe.Tag()
}
