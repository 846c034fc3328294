package problem

import (
	"maps"
	"slices"
)

// reservedMembers are the members defined by the problem document itself.
// Extension parameters cannot use these names.
var reservedMembers = map[string]bool{
	"type":       true,
	"title":      true,
	"status":     true,
	"detail":     true,
	"instance":   true,
	"cause":      true,
	"stackTrace": true,
}

// Builder assembles a Problem. A Builder is not safe for concurrent use; the
// Problem it builds is.
type Builder struct {
	p Problem
}

// NewBuilder returns a Builder for a problem of type BlankType.
func NewBuilder() *Builder {
	return &Builder{p: Problem{typ: BlankType}}
}

// WithType sets the problem type URI. An empty type resets it to BlankType.
func (b *Builder) WithType(typ string) *Builder {
	if typ == "" {
		typ = BlankType
	}
	b.p.typ = typ
	return b
}

// WithTitle sets the title.
func (b *Builder) WithTitle(title string) *Builder {
	b.p.title = title
	return b
}

// WithStatus sets the status.
func (b *Builder) WithStatus(status Status) *Builder {
	b.p.status = &status
	return b
}

// WithDetail sets the occurrence-specific detail. The value is kept as-is.
func (b *Builder) WithDetail(detail string) *Builder {
	b.p.detail = detail
	return b
}

// WithInstance sets the URI reference of this occurrence.
func (b *Builder) WithInstance(instance string) *Builder {
	b.p.instance = instance
	return b
}

// WithCause sets the nested cause problem. A nil cause clears it.
func (b *Builder) WithCause(cause *Problem) *Builder {
	b.p.cause = cause
	return b
}

// With adds an extension member. Empty and reserved member names are ignored.
func (b *Builder) With(key string, value any) *Builder {
	if key == "" || reservedMembers[key] {
		return b
	}
	if b.p.parameters == nil {
		b.p.parameters = map[string]any{}
	}
	b.p.parameters[key] = value
	return b
}

// WithStackTrace attaches the stack trace of the problem.
func (b *Builder) WithStackTrace(frames []Frame) *Builder {
	b.p.stackTrace = frames
	return b
}

// Build returns the finished Problem. The builder may be reused afterwards;
// later changes do not affect problems already built.
func (b *Builder) Build() *Problem {
	p := b.p
	p.parameters = maps.Clone(b.p.parameters)
	p.stackTrace = slices.Clone(b.p.stackTrace)
	if p.status != nil {
		s := *p.status
		p.status = &s
	}
	return &p
}

// Valued returns a problem for the given status, with the reason phrase as title.
func Valued(status Status, detail string) *Problem {
	return NewBuilder().WithTitle(status.Reason).WithStatus(status).WithDetail(detail).Build()
}
