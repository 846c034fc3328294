package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/problemadvice/internal/common/httpx"
)

const TimeoutHeader = "X-Request-Timeout"

// SetTimeout creates middleware that enforces a timeout for request handling. If the request
// exceeds the specified duration, it answers with a request timeout problem. The timeout is
// added to response headers for debugging purposes. A panic in the handler is answered with
// a 500 problem, except http.ErrAbortHandler, which is re-raised on the serving goroutine.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)

			rw.Header().Set(TimeoutHeader, timeout.String())

			done := make(chan struct{})
			var (
				panicErr error
				aborted  bool
			)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						if rec == http.ErrAbortHandler {
							aborted = true
						} else {
							panicErr = panicError(rec)
						}
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				if aborted {
					panic(http.ErrAbortHandler)
				}
				if panicErr != nil && !rw.Written() {
					httpx.SendError(rw, r, panicErr)
				}
			case <-ctx.Done():
				log.Ctx(ctx).Error().Msgf("request timed out")
				if !rw.Written() {
					httpx.SendError(rw, r, httpx.ErrRequestTimeout().Wrap(ctx.Err()))
				}
			}
		})
	}
}
