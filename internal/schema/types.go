// Package schema provides declarative shape contracts for request and
// response payloads.
//
// A contract is built from tagged variant types (String, Number, Boolean,
// Enum, Object, Array, Optional), each carrying its own constraint set, and
// composed by nesting. Sub-schemas are shared by reusing the same value in
// several parents; nothing is inherited.
//
// Contracts are registered once under a unique name in a Registry and are
// read-only afterwards. Validate checks and coerces inbound values and
// collects every issue it finds; Serialize projects outbound values onto the
// declared shape and drops everything else.
package schema

import (
	"regexp"
)

// Kind identifies a Type variant.
type Kind string

const (
	KindString   Kind = "string"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindEnum     Kind = "enum"
	KindObject   Kind = "object"
	KindArray    Kind = "array"
	KindOptional Kind = "optional"
)

// Type is implemented by every schema variant. The set is closed.
type Type interface {
	Kind() Kind
	variant()
}

// String accepts string values.
type String struct {
	// MinLength is the minimum length in runes.
	MinLength int
	// MaxLength is the maximum length in runes; zero means unbounded.
	MaxLength int
	// Pattern, when set, must match the whole value.
	Pattern *regexp.Regexp
}

// Number accepts numeric values.
type Number struct {
	// Integer rejects values with a fractional part. Accepted values are
	// normalized to int64.
	Integer bool
	// Positive requires the value to be strictly greater than zero.
	Positive bool
	Min      *float64
	Max      *float64
}

// Boolean accepts true or false.
type Boolean struct{}

// Enum accepts one of a fixed set of strings.
type Enum struct {
	Values []string
}

// Object accepts a map of named fields. Undeclared keys are dropped.
type Object struct {
	Fields []Field
	// Refinements run after every field validated cleanly and defaults were
	// applied.
	Refinements []Refinement
}

// Array accepts a list whose elements all satisfy Items.
type Array struct {
	Items    Type
	MinItems int
	// MaxItems is the maximum element count; zero means unbounded.
	MaxItems int
}

// Optional marks a value that may be absent.
type Optional struct {
	Of Type
}

// Field is a named member of an Object.
type Field struct {
	Name string
	Type Type
	// Default is applied when the field is absent. A field with a default is
	// never reported as missing.
	Default any
}

// Refinement is a cross-field predicate evaluated on a validated object,
// e.g. "both password fields are equal".
type Refinement struct {
	// Path is the field the issue is reported against.
	Path    string
	Message string
	Check   func(obj map[string]any) bool
}

func (String) Kind() Kind   { return KindString }
func (Number) Kind() Kind   { return KindNumber }
func (Boolean) Kind() Kind  { return KindBoolean }
func (Enum) Kind() Kind     { return KindEnum }
func (Object) Kind() Kind   { return KindObject }
func (Array) Kind() Kind    { return KindArray }
func (Optional) Kind() Kind { return KindOptional }

func (String) variant()   {}
func (Number) variant()   {}
func (Boolean) variant()  {}
func (Enum) variant()     {}
func (Object) variant()   {}
func (Array) variant()    {}
func (Optional) variant() {}

// Bound returns a pointer to f, for Number.Min and Number.Max.
func Bound(f float64) *float64 {
	return &f
}

// Schema is a named, registered contract.
type Schema struct {
	Name string
	Type Type
}

// required reports whether a field must be present in its parent object.
func (f Field) required() bool {
	if f.Default != nil {
		return false
	}
	_, optional := f.Type.(Optional)
	return !optional
}
