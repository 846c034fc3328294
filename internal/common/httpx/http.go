// Package httpx provides HTTP request/response handling utilities. Handler
// errors are answered with RFC 7807 problem documents through the installed
// problem advice.
package httpx

import (
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New(validator.WithRequiredStructEnabled())

// GetRequestData parses JSON request body into the provided data structure
// and validates it against its `validate` struct tags. Only supports POST and
// PUT methods. Validation failures are returned as validator.ValidationErrors,
// which are answered with a constraint violation problem.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("Empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData().Wrap(err)
	}
	if v := reflect.Indirect(reflect.ValueOf(data)); v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(data); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Response represents an HTTP response with configurable status code and
// an optional Location header for created resources.
type Response struct {
	StatusCode int
	Location   string
	Response   any
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized HTTP response
// handling. Errors returned by the handler are sent as problem responses.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendError(w, r, err)
			return
		}
		if rsp == nil {
			SendError(w, r, ErrApplicationError())
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(w, r, rsp.StatusCode, rsp.Response, location...)
	})
}
