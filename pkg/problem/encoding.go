package problem

import (
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireProblem fixes the member order of the core members on the wire.
type wireProblem struct {
	Type       string              `json:"type"`
	Title      string              `json:"title,omitempty"`
	Status     *int                `json:"status,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	Instance   string              `json:"instance,omitempty"`
	Cause      jsoniter.RawMessage `json:"cause,omitempty"`
	StackTrace []string            `json:"stackTrace,omitempty"`
}

// Encoder serializes problems to JSON.
type Encoder struct {
	// StackTraces includes the attached stack traces as a "stackTrace" array
	// of "Function(File:Line)" strings. Off by default, since stack traces are
	// diagnostic data that is rarely meant for clients.
	StackTraces bool
}

// Marshal returns the JSON encoding of p. Core members come first in a fixed
// order, followed by the extension parameters in sorted key order.
func (e Encoder) Marshal(p *Problem) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	w := wireProblem{
		Type:     p.typ,
		Title:    p.title,
		Detail:   p.detail,
		Instance: p.instance,
	}
	if w.Type == "" {
		w.Type = BlankType
	}
	if p.status != nil {
		code := p.status.Code
		w.Status = &code
	}
	if p.cause != nil {
		cause, err := e.Marshal(p.cause)
		if err != nil {
			return nil, errors.Wrap(err, "encoding cause")
		}
		w.Cause = cause
	}
	if e.StackTraces && len(p.stackTrace) > 0 {
		w.StackTrace = make([]string, len(p.stackTrace))
		for i, f := range p.stackTrace {
			w.StackTrace[i] = f.String()
		}
	}

	b, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "encoding problem")
	}

	keys := make([]string, 0, len(p.parameters))
	for k := range p.parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b, err = sjson.SetBytes(b, escapeMember(k), p.parameters[k])
		if err != nil {
			return nil, errors.Wrapf(err, "encoding parameter %q", k)
		}
	}
	return b, nil
}

// MarshalJSON implements json.Marshaler. Stack traces are not included.
func (p *Problem) MarshalJSON() ([]byte, error) {
	return Encoder{}.Marshal(p)
}

// UnmarshalJSON implements json.Unmarshaler. Members other than the core
// members become parameters; a "stackTrace" member is ignored.
func (p *Problem) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("problem: invalid JSON")
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return errors.New("problem: document is not a JSON object")
	}
	decoded, err := fromResult(r)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

// Parse decodes a problem document.
func Parse(data []byte) (*Problem, error) {
	p := &Problem{}
	if err := p.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return p, nil
}

func fromResult(r gjson.Result) (*Problem, error) {
	b := NewBuilder()
	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "type":
			b.WithType(value.String())
		case "title":
			b.WithTitle(value.String())
		case "status":
			if value.Type != gjson.Number {
				err = errors.Errorf("problem: status must be a number, got %s", value.Type)
				return false
			}
			b.WithStatus(StatusOf(int(value.Int())))
		case "detail":
			b.WithDetail(value.String())
		case "instance":
			b.WithInstance(value.String())
		case "cause":
			if value.Type == gjson.Null {
				return true
			}
			if !value.IsObject() {
				err = errors.New("problem: cause is not a JSON object")
				return false
			}
			var cause *Problem
			if cause, err = fromResult(value); err != nil {
				return false
			}
			b.WithCause(cause)
		case "stackTrace":
		default:
			b.With(key.String(), value.Value())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// escapeMember turns a member name into a single-component sjson path.
func escapeMember(name string) string {
	var sb strings.Builder
	for _, c := range name {
		switch c {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	if isDigits(name) {
		return ":" + sb.String()
	}
	return sb.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
