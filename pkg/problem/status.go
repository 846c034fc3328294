package problem

import (
	"net/http"
	"strconv"
)

// Status pairs a numeric HTTP status code with its reason phrase.
type Status struct {
	Code   int    // HTTP status code
	Reason string // reason phrase, e.g. "Not Found"
}

// InternalServerError is the status used when no other status can be determined.
var InternalServerError = StatusOf(http.StatusInternalServerError)

// StatusOf derives a Status from a raw status code. The reason phrase is the
// standard one from net/http; codes without a registered phrase get an empty reason.
func StatusOf(code int) Status {
	return Status{Code: code, Reason: http.StatusText(code)}
}

// Is4xxClientError reports whether the status is in the client error class.
func (s Status) Is4xxClientError() bool {
	return s.Code >= 400 && s.Code < 500
}

// Is5xxServerError reports whether the status is in the server error class.
func (s Status) Is5xxServerError() bool {
	return s.Code >= 500 && s.Code < 600
}

// String returns "<code> <reason>", e.g. "404 Not Found".
func (s Status) String() string {
	if s.Reason == "" {
		return strconv.Itoa(s.Code)
	}
	return strconv.Itoa(s.Code) + " " + s.Reason
}
