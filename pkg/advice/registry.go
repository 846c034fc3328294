package advice

import (
	"reflect"

	"github.com/tansive/problemadvice/pkg/problem"
)

// Registry maps error types and sentinel errors to HTTP statuses. Build it
// once at startup with NewRegistry; it is read-only afterwards.
type Registry struct {
	types      map[reflect.Type]problem.Status
	interfaces []typeMapping
	sentinels  []sentinelMapping
}

type typeMapping struct {
	t      reflect.Type
	status problem.Status
}

type sentinelMapping struct {
	err    error
	status problem.Status
}

// Mapping is a single registry entry, created with Map or MapError.
type Mapping func(*Registry)

// Map declares the status for errors of type E. If E is an interface type,
// every error whose dynamic type implements E is matched; interface entries
// are tried in registration order after exact types.
func Map[E error](code int) Mapping {
	t := reflect.TypeFor[E]()
	status := problem.StatusOf(code)
	return func(r *Registry) {
		if t.Kind() == reflect.Interface {
			r.interfaces = append(r.interfaces, typeMapping{t: t, status: status})
			return
		}
		r.types[t] = status
	}
}

// MapError declares the status for a sentinel error value. Only the sentinel
// itself matches; errors wrapping it are matched when the cause chain is walked.
func MapError(sentinel error, code int) Mapping {
	status := problem.StatusOf(code)
	return func(r *Registry) {
		r.sentinels = append(r.sentinels, sentinelMapping{err: sentinel, status: status})
	}
}

// NewRegistry builds a registry from mappings. Later mappings for the same
// type replace earlier ones.
func NewRegistry(mappings ...Mapping) *Registry {
	r := &Registry{types: map[reflect.Type]problem.Status{}}
	for _, m := range mappings {
		m(r)
	}
	return r
}

// Lookup returns the status registered for err itself. Sentinels are checked
// first, then the exact dynamic type, then interface entries.
func (r *Registry) Lookup(err error) (problem.Status, bool) {
	if r == nil || err == nil {
		return problem.Status{}, false
	}
	for _, m := range r.sentinels {
		if sameError(err, m.err) {
			return m.status, true
		}
	}
	t := reflect.TypeOf(err)
	if s, ok := r.types[t]; ok {
		return s, true
	}
	for _, m := range r.interfaces {
		if t.Implements(m.t) {
			return m.status, true
		}
	}
	return problem.Status{}, false
}

// sameError compares two errors by identity without panicking on
// non-comparable dynamic types.
func sameError(a, b error) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
