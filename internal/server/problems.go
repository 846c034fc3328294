package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/problemadvice/internal/common/apperrors"
	"github.com/tansive/problemadvice/internal/common/httpx"
)

const maxCauseDepth = 10

// getProblem fails with a chain of depth errors whose outermost error
// declares the requested status. Causes declare no status.
func (s *ProblemServer) getProblem(r *http.Request) (*httpx.Response, error) {
	status, err := strconv.Atoi(chi.URLParam(r, "status"))
	if err != nil || status < 400 || status > 599 {
		return nil, httpx.ErrInvalidRequest("status must be a number between 400 and 599")
	}
	depth := 1
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, err = strconv.Atoi(d)
		if err != nil || depth < 1 || depth > maxCauseDepth {
			return nil, httpx.ErrInvalidRequest(fmt.Sprintf("depth must be a number between 1 and %d", maxCauseDepth))
		}
	}
	detail := r.URL.Query().Get("detail")
	if detail == "" {
		detail = "requested problem"
	}

	problemErr := apperrors.New(detail).SetStatusCode(status)
	if cause := causeChain(1, depth); cause != nil {
		problemErr = problemErr.Wrap(cause)
	}
	return nil, problemErr
}

// causeChain builds the causes from level to depth-1, one call frame per
// level so that each cause carries its own stack.
func causeChain(level, depth int) error {
	if level >= depth {
		return nil
	}
	err := apperrors.New(fmt.Sprintf("cause %d", level))
	if inner := causeChain(level+1, depth); inner != nil {
		return err.Wrap(inner)
	}
	return err
}
