package advice

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/tansive/problemadvice/pkg/problem"
)

// Response is an assembled problem response, ready to be written.
type Response struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        *problem.Problem
}

// Fallback assembles the response for p. The status code is the status of
// the problem, or 500 if it has none. header is copied into the response.
func (a *Advice) Fallback(_ error, p *problem.Problem, header http.Header) *Response {
	code := problem.InternalServerError.Code
	if p != nil && p.Status() != nil {
		code = p.StatusCode()
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return &Response{
		StatusCode:  code,
		Header:      h,
		ContentType: problem.MediaType,
		Body:        p,
	}
}

// Process applies the configured Processor to rsp. Without one, rsp is
// returned unchanged.
func (a *Advice) Process(rsp *Response) *Response {
	if a.processor == nil {
		return rsp
	}
	return a.processor(rsp)
}

// Create runs the whole pipeline for an error raised while serving r: it
// builds the problem, logs the outcome, assembles the response with a
// content type negotiated from the Accept header, and processes it.
//
// A *problem.Problem error is used as-is. An error carrying
// validator.ValidationErrors becomes a constraint violation problem.
func (a *Advice) Create(r *http.Request, err error) *Response {
	p := a.problemFor(err)
	status := problem.InternalServerError
	if s := p.Status(); s != nil {
		status = *s
	}
	a.logFunc(a.requestLogger(r), err, p, status)

	rsp := a.Fallback(err, p, nil)
	if r != nil {
		rsp.ContentType = problem.Negotiate(r.Header.Get("Accept"))
	}
	return a.Process(rsp)
}

func (a *Advice) problemFor(err error) *problem.Problem {
	if p, ok := err.(*problem.Problem); ok && p != nil {
		return p
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return a.ConstraintViolation(err, verrs)
	}
	return a.ToProblem(err)
}

// Write writes rsp to w. Headers of the response replace those already set on w.
func (a *Advice) Write(w http.ResponseWriter, rsp *Response) error {
	body, err := a.encoder.Marshal(rsp.Body)
	if err != nil {
		return err
	}
	h := w.Header()
	for k, vs := range rsp.Header {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Content-Type", rsp.ContentType)
	w.WriteHeader(rsp.StatusCode)
	_, err = w.Write(body)
	return errors.Wrap(err, "writing problem response")
}

// Handle answers r with the problem response for err. A nil err is ignored.
func (a *Advice) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	rsp := a.Create(r, err)
	if werr := a.Write(w, rsp); werr != nil {
		a.requestLogger(r).Error().Err(werr).Msg("unable to send problem response")
	}
}
