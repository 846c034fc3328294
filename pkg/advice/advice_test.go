package advice

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tansive/problemadvice/pkg/problem"
)

// declaredError declares its own status.
type declaredError struct {
	code  int
	msg   string
	cause error
}

func (e *declaredError) Error() string   { return e.msg }
func (e *declaredError) Unwrap() error   { return e.cause }
func (e *declaredError) StatusCode() int { return e.code }

// plainError declares nothing.
type plainError struct {
	msg   string
	cause error
}

func (e *plainError) Error() string { return e.msg }
func (e *plainError) Unwrap() error { return e.cause }

// badRequest is embedded to give an error type its status.
type badRequest struct{}

func (badRequest) StatusCode() int { return http.StatusBadRequest }

type invalidInput struct {
	badRequest
	msg string
}

func (e invalidInput) Error() string { return e.msg }

type conflictError struct{}

func (conflictError) Error() string   { return "conflict" }
func (conflictError) HTTPStatus() int { return http.StatusConflict }

// tracedError captures a pkg/errors stack where it is created.
type tracedError struct {
	error
	cause error
}

func (e *tracedError) Unwrap() error { return e.cause }

func (e *tracedError) StackTrace() errors.StackTrace {
	return e.error.(interface{ StackTrace() errors.StackTrace }).StackTrace()
}

//go:noinline
func traced(msg string, cause error) error {
	return &tracedError{error: errors.New(msg), cause: cause}
}

//go:noinline
func failDeep() error {
	return traced("disk full", nil)
}

//go:noinline
func failOuter() error {
	err := failDeep()
	return traced("write failed", err)
}

func TestResolveStatus(t *testing.T) {
	a := New()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no marker defaults to 500", &plainError{msg: "x"}, http.StatusInternalServerError},
		{"no marker in whole chain", &plainError{msg: "a", cause: &plainError{msg: "b", cause: stderrors.New("c")}}, http.StatusInternalServerError},
		{"direct marker", &declaredError{code: http.StatusNotFound}, http.StatusNotFound},
		{"marker on cause", &plainError{msg: "a", cause: &declaredError{code: http.StatusForbidden}}, http.StatusForbidden},
		{"outermost marker wins", &declaredError{code: http.StatusServiceUnavailable, cause: &declaredError{code: http.StatusNotFound}}, http.StatusServiceUnavailable},
		{"promoted marker", invalidInput{msg: "bad"}, http.StatusBadRequest},
		{"HTTPStatus marker", conflictError{}, http.StatusConflict},
		{"through pkg/errors wrapping", errors.Wrap(&declaredError{code: http.StatusTeapot}, "brewing"), http.StatusTeapot},
		{"through fmt wrapping", fmt.Errorf("handler: %w", invalidInput{msg: "bad"}), http.StatusBadRequest},
		{"joined errors follow the first", stderrors.Join(&declaredError{code: http.StatusGone}, conflictError{}), http.StatusGone},
		{"zero code is no marker", &declaredError{code: 0}, http.StatusInternalServerError},
		{"problem declares its status", problem.Valued(problem.StatusOf(http.StatusTooManyRequests), ""), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := a.ResolveStatus(tt.err)
			assert.Equal(t, tt.want, s.Code)
			assert.Equal(t, http.StatusText(tt.want), s.Reason)
		})
	}

	_, ok := a.ResolveResponseStatus(&plainError{msg: "x"})
	assert.False(t, ok)
	s, ok := a.ResolveResponseStatus(invalidInput{})
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, s.Code)
}

func TestMergedMarkerMatchesDirect(t *testing.T) {
	a := New()
	direct := a.ResolveStatus(&declaredError{code: http.StatusBadRequest})
	promoted := a.ResolveStatus(invalidInput{msg: "x"})
	assert.Equal(t, direct, promoted)
}

type causer struct{ cause error }

func (c causer) Error() string { return "causer" }
func (c causer) Cause() error  { return c.cause }

func TestCause(t *testing.T) {
	inner := stderrors.New("inner")
	assert.Equal(t, inner, Cause(&plainError{cause: inner}))
	assert.Equal(t, inner, Cause(causer{cause: inner}))
	assert.Equal(t, inner, Cause(stderrors.Join(inner, stderrors.New("other"))))
	assert.Nil(t, Cause(stderrors.New("leaf")))
	assert.Nil(t, Cause(stderrors.Join()))
}

func TestToProblem(t *testing.T) {
	d := &declaredError{code: http.StatusNotFound, msg: "no row"}
	c := &plainError{msg: "query failed", cause: d}
	e := &declaredError{code: http.StatusServiceUnavailable, msg: "store unavailable", cause: c}

	t.Run("fields", func(t *testing.T) {
		p := New().ToProblem(e)
		assert.Equal(t, problem.BlankType, p.Type())
		assert.Equal(t, "Service Unavailable", p.Title())
		assert.Equal(t, http.StatusServiceUnavailable, p.StatusCode())
		assert.Equal(t, "store unavailable", p.Detail())
	})

	t.Run("causal chains disabled", func(t *testing.T) {
		assert.Nil(t, New().ToProblem(e).Cause())
		assert.Nil(t, New(WithCausalChains(false)).ToProblem(e).Cause())
	})

	t.Run("causal chains enabled", func(t *testing.T) {
		p := New(WithCausalChains(true)).ToProblem(e)
		require.NotNil(t, p.Cause())
		require.NotNil(t, p.Cause().Cause())
		assert.Nil(t, p.Cause().Cause().Cause())

		// every cause resolves its own status
		assert.Equal(t, "query failed", p.Cause().Detail())
		assert.Equal(t, http.StatusNotFound, p.Cause().StatusCode())
		assert.Equal(t, "no row", p.Cause().Cause().Detail())
		assert.Equal(t, "Not Found", p.Cause().Cause().Title())
	})

	t.Run("explicit status and type", func(t *testing.T) {
		p := New().ToProblemWithType(e, problem.StatusOf(http.StatusBadGateway), "https://example.com/problems/upstream")
		assert.Equal(t, "https://example.com/problems/upstream", p.Type())
		assert.Equal(t, "Bad Gateway", p.Title())
		assert.Equal(t, http.StatusBadGateway, p.StatusCode())

		p = New().ToProblemWithStatus(e, problem.StatusOf(http.StatusGatewayTimeout))
		assert.Equal(t, problem.BlankType, p.Type())
		assert.Equal(t, http.StatusGatewayTimeout, p.StatusCode())
	})

	t.Run("empty message passes through", func(t *testing.T) {
		p := New().ToProblem(&plainError{})
		assert.Empty(t, p.Detail())
		assert.Equal(t, "Internal Server Error", p.Title())
	})

	t.Run("nil error", func(t *testing.T) {
		p := New().ToProblem(nil)
		assert.Equal(t, http.StatusInternalServerError, p.StatusCode())
		assert.Empty(t, p.Detail())
		assert.Empty(t, p.StackTrace())
	})

	t.Run("idempotent", func(t *testing.T) {
		a := New(WithCausalChains(true))
		err := failOuter()
		p1 := a.ToProblem(err)
		p2 := a.ToProblem(err)
		assert.Equal(t, p1, p2)

		enc := problem.Encoder{StackTraces: true}
		b1, merr := enc.Marshal(p1)
		require.NoError(t, merr)
		b2, merr := enc.Marshal(p2)
		require.NoError(t, merr)
		c1, cerr := jsoncanonicalizer.Transform(b1)
		require.NoError(t, cerr)
		c2, cerr := jsoncanonicalizer.Transform(b2)
		require.NoError(t, cerr)
		assert.Equal(t, string(c1), string(c2))
	})
}

func TestCreateStackTrace(t *testing.T) {
	frame := func(name string) problem.Frame {
		return problem.Frame{Function: name, File: name + ".go", Line: 1}
	}
	a, b, c, d, x := frame("a"), frame("b"), frame("c"), frame("d"), frame("x")
	inner := &plainError{msg: "inner"}
	outer := &plainError{msg: "outer", cause: inner}
	stacks := map[error][]problem.Frame{}
	stackOf := func(err error) []problem.Frame { return stacks[err] }

	tests := []struct {
		name  string
		outer []problem.Frame
		inner []problem.Frame
		want  []problem.Frame
	}{
		{"shared suffix removed", []problem.Frame{a, b, c, d}, []problem.Frame{x, b, c, d}, []problem.Frame{a}},
		{"nothing shared", []problem.Frame{a, b}, []problem.Frame{c, d}, []problem.Frame{a, b}},
		{"fully duplicated", []problem.Frame{a, b}, []problem.Frame{a, b}, []problem.Frame{}},
		{"empty traces", nil, nil, []problem.Frame{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stacks[outer], stacks[inner] = tt.outer, tt.inner
			got := New(WithCausalChains(true), WithStackFunc(stackOf)).CreateStackTrace(outer)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("untouched without causal chains", func(t *testing.T) {
		stacks[outer], stacks[inner] = []problem.Frame{a, b, c, d}, []problem.Frame{x, b, c, d}
		got := New(WithStackFunc(stackOf)).CreateStackTrace(outer)
		assert.Equal(t, []problem.Frame{a, b, c, d}, got)
	})

	t.Run("untouched without cause", func(t *testing.T) {
		stacks[inner] = []problem.Frame{a, b}
		got := New(WithCausalChains(true), WithStackFunc(stackOf)).CreateStackTrace(inner)
		assert.Equal(t, []problem.Frame{a, b}, got)
	})

	t.Run("captured pkg/errors stacks", func(t *testing.T) {
		err := failOuter()
		raw := StackTrace(err)
		require.NotEmpty(t, raw)

		full := New().CreateStackTrace(err)
		assert.Equal(t, raw, full)

		trimmed := New(WithCausalChains(true)).CreateStackTrace(err)
		require.NotEmpty(t, trimmed)
		assert.Less(t, len(trimmed), len(raw))
		assert.Equal(t, raw[:len(trimmed)], trimmed)
		assert.True(t, strings.HasSuffix(trimmed[len(trimmed)-1].Function, ".failOuter"), trimmed[len(trimmed)-1].Function)
		for _, f := range trimmed {
			assert.NotContains(t, f.Function, "TestCreateStackTrace")
		}
	})

	t.Run("attached to the outer problem", func(t *testing.T) {
		err := failOuter()
		p := New(WithCausalChains(true)).ToProblem(err)
		assert.Equal(t, New(WithCausalChains(true)).CreateStackTrace(err), p.StackTrace())
		require.NotNil(t, p.Cause())
		assert.Equal(t, StackTrace(Cause(err)), p.Cause().StackTrace())
	})
}

func TestRegistry(t *testing.T) {
	errDeadline := stderrors.New("deadline")
	type temporary interface {
		error
		Temporary() bool
	}

	r := NewRegistry(
		Map[*plainError](http.StatusUnprocessableEntity),
		Map[temporary](http.StatusServiceUnavailable),
		MapError(errDeadline, http.StatusGatewayTimeout),
	)
	a := New(WithRegistry(r))

	assert.Equal(t, http.StatusUnprocessableEntity, a.ResolveStatus(&plainError{msg: "x"}).Code)
	assert.Equal(t, http.StatusServiceUnavailable, a.ResolveStatus(tempError{}).Code)
	assert.Equal(t, http.StatusGatewayTimeout, a.ResolveStatus(errDeadline).Code)
	assert.Equal(t, http.StatusGatewayTimeout, a.ResolveStatus(fmt.Errorf("calling upstream: %w", errDeadline)).Code)
	assert.Equal(t, http.StatusInternalServerError, a.ResolveStatus(stderrors.New("deadline")).Code)

	// typed markers still apply when the registry has no entry
	assert.Equal(t, http.StatusConflict, a.ResolveStatus(conflictError{}).Code)

	_, ok := r.Lookup(nil)
	assert.False(t, ok)
	_, ok = (*Registry)(nil).Lookup(errDeadline)
	assert.False(t, ok)

	// non-comparable dynamic types never match a sentinel
	_, ok = NewRegistry(MapError(multiErr{}, 400)).Lookup(multiErr{})
	assert.False(t, ok)
}

type tempError struct{}

func (tempError) Error() string   { return "try again" }
func (tempError) Temporary() bool { return true }

type multiErr []error

func (multiErr) Error() string { return "multi" }

func TestWithStatusLookup(t *testing.T) {
	a := New(WithStatusLookup(func(err error) (problem.Status, bool) {
		if err.Error() == "teapot" {
			return problem.StatusOf(http.StatusTeapot), true
		}
		return problem.Status{}, false
	}))
	assert.Equal(t, http.StatusTeapot, a.ResolveStatus(&plainError{msg: "outer", cause: stderrors.New("teapot")}).Code)
	// the replaced lookup no longer honors typed markers
	assert.Equal(t, http.StatusInternalServerError, a.ResolveStatus(conflictError{}).Code)
}

func logLines(t *testing.T, buf *bytes.Buffer) []gjson.Result {
	t.Helper()
	var lines []gjson.Result
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		require.True(t, gjson.Valid(l), l)
		lines = append(lines, gjson.Parse(l))
	}
	return lines
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	a := New(WithLogger(zerolog.New(&buf)))
	err := errors.Wrap(&declaredError{code: http.StatusNotFound, msg: "no such user"}, "lookup")

	t.Run("client errors are warnings without stack", func(t *testing.T) {
		buf.Reset()
		a.Log(err, nil, problem.StatusOf(http.StatusNotFound))
		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "warn", lines[0].Get("level").String())
		assert.Equal(t, "Not Found: lookup: no such user", lines[0].Get("message").String())
		assert.False(t, lines[0].Get("stack_trace").Exists())
		assert.False(t, lines[0].Get("error").Exists())
	})

	t.Run("server errors carry the error and stack", func(t *testing.T) {
		buf.Reset()
		a.Log(err, nil, problem.InternalServerError)
		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "error", lines[0].Get("level").String())
		assert.Equal(t, "Internal Server Error", lines[0].Get("message").String())
		assert.Equal(t, "lookup: no such user", lines[0].Get("error").String())
		assert.NotEmpty(t, lines[0].Get("stack_trace").Array())
		assert.Contains(t, lines[0].Get("stack_trace.0").String(), "TestLog")
	})

	t.Run("other classes are not logged", func(t *testing.T) {
		buf.Reset()
		a.Log(err, nil, problem.StatusOf(http.StatusFound))
		a.Log(err, nil, problem.StatusOf(http.StatusOK))
		assert.Empty(t, buf.String())
	})

	t.Run("replaced policy", func(t *testing.T) {
		var got problem.Status
		custom := New(WithLogFunc(func(_ *zerolog.Logger, _ error, _ *problem.Problem, status problem.Status) {
			got = status
		}))
		custom.Log(err, nil, problem.StatusOf(http.StatusConflict))
		assert.Equal(t, http.StatusConflict, got.Code)
	})
}

func TestFallback(t *testing.T) {
	a := New()
	header := http.Header{"Retry-After": []string{"30"}}
	p := problem.Valued(problem.StatusOf(http.StatusServiceUnavailable), "maintenance")

	rsp := a.Fallback(nil, p, header)
	assert.Equal(t, http.StatusServiceUnavailable, rsp.StatusCode)
	assert.Equal(t, problem.MediaType, rsp.ContentType)
	assert.Equal(t, "30", rsp.Header.Get("Retry-After"))
	assert.Same(t, p, rsp.Body)

	header.Set("Retry-After", "60")
	assert.Equal(t, "30", rsp.Header.Get("Retry-After"))

	rsp = a.Fallback(nil, problem.NewBuilder().WithTitle("no status").Build(), nil)
	assert.Equal(t, http.StatusInternalServerError, rsp.StatusCode)
	assert.Equal(t, problem.MediaType, rsp.ContentType)
	assert.NotNil(t, rsp.Header)

	assert.Same(t, rsp, a.Process(rsp))
}

type signup struct {
	Name string `validate:"required"`
	Age  int    `validate:"min=18"`
}

func TestCreate(t *testing.T) {
	t.Run("problem errors pass through", func(t *testing.T) {
		p := problem.Valued(problem.StatusOf(http.StatusTooManyRequests), "slow down")
		rsp := New().Create(httptest.NewRequest(http.MethodGet, "/", nil), p)
		assert.Same(t, p, rsp.Body)
		assert.Equal(t, http.StatusTooManyRequests, rsp.StatusCode)
	})

	t.Run("validation errors become constraint violations", func(t *testing.T) {
		verr := validator.New().Struct(signup{Age: 3})
		require.Error(t, verr)
		err := fmt.Errorf("decoding signup: %w", verr)

		rsp := New(WithProblemTypeBase("https://example.com/problems")).Create(nil, err)
		assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)
		assert.Equal(t, ConstraintViolationTitle, rsp.Body.Title())
		assert.Equal(t, "https://example.com/problems/constraint-violation", rsp.Body.Type())

		var params struct {
			Violations []Violation `mapstructure:"violations"`
		}
		require.NoError(t, rsp.Body.DecodeParameters(&params))
		assert.Equal(t, []Violation{
			{Field: "Name", Message: "must not be empty"},
			{Field: "Age", Message: "must be at least 18"},
		}, params.Violations)
	})

	t.Run("plain errors are mapped", func(t *testing.T) {
		rsp := New().Create(nil, &declaredError{code: http.StatusNotFound, msg: "gone"})
		assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
		assert.Equal(t, "gone", rsp.Body.Detail())
		assert.Equal(t, problem.MediaType, rsp.ContentType)
	})

	t.Run("content negotiation", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", problem.XMediaType)
		rsp := New().Create(r, stderrors.New("x"))
		assert.Equal(t, problem.XMediaType, rsp.ContentType)
	})

	t.Run("processor", func(t *testing.T) {
		a := New(WithProcessor(func(rsp *Response) *Response {
			rsp.Header.Set("Cache-Control", "no-store")
			return rsp
		}))
		rsp := a.Create(nil, stderrors.New("x"))
		assert.Equal(t, "no-store", rsp.Header.Get("Cache-Control"))
	})

	t.Run("request logger is preferred", func(t *testing.T) {
		var injected, scoped bytes.Buffer
		a := New(WithLogger(zerolog.New(&injected)))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(zerolog.New(&scoped).With().Str("request_id", "r-1").Logger().WithContext(r.Context()))

		a.Create(r, &declaredError{code: http.StatusBadRequest, msg: "bad"})
		assert.Empty(t, injected.String())
		lines := logLines(t, &scoped)
		require.Len(t, lines, 1)
		assert.Equal(t, "r-1", lines[0].Get("request_id").String())
	})
}

func TestHandle(t *testing.T) {
	a := New(WithCausalChains(true))
	err := &declaredError{code: http.StatusConflict, msg: "version mismatch", cause: failDeep()}

	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/plain")
	a.Handle(w, httptest.NewRequest(http.MethodPut, "/items/1", nil), err)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, problem.MediaType, w.Header().Get("Content-Type"))
	body := gjson.ParseBytes(w.Body.Bytes())
	assert.Equal(t, "about:blank", body.Get("type").String())
	assert.Equal(t, "Conflict", body.Get("title").String())
	assert.Equal(t, int64(409), body.Get("status").Int())
	assert.Equal(t, "version mismatch", body.Get("detail").String())
	assert.Equal(t, int64(500), body.Get("cause.status").Int())
	assert.Equal(t, "disk full", body.Get("cause.detail").String())
	assert.False(t, body.Get("stackTrace").Exists())

	t.Run("stack traces when enabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(WithStackTraces(true)).Handle(w, nil, failOuter())
		assert.NotEmpty(t, gjson.GetBytes(w.Body.Bytes(), "stackTrace").Array())
	})

	t.Run("nil error is ignored", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handle(w, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestConcurrentUse(t *testing.T) {
	a := New(WithCausalChains(true))
	err := failOuter()
	want := a.ToProblem(err)

	done := make(chan *problem.Problem)
	for i := 0; i < 8; i++ {
		go func() { done <- a.ToProblem(err) }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

type detailedError struct{ *plainError }

func (detailedError) Details() map[string]any {
	return map[string]any{"balance": 30, "status": 999}
}

func TestDetailsBecomeParameters(t *testing.T) {
	p := New().ToProblem(detailedError{&plainError{msg: "insufficient funds"}})
	balance, ok := p.Parameter("balance")
	assert.True(t, ok)
	assert.Equal(t, 30, balance)
	assert.Equal(t, http.StatusInternalServerError, p.StatusCode())
	_, reserved := p.Parameters()["status"]
	assert.False(t, reserved)
}
