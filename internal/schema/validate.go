package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Option tunes validation.
type Option func(*options)

type options struct {
	coerceStrings bool
}

// CoerceStrings converts string inputs to numbers and booleans where the
// schema asks for them, and lone strings to single-element arrays. Used for
// query-parameter inputs, where every value arrives as text.
func CoerceStrings() Option {
	return func(o *options) { o.coerceStrings = true }
}

// Validator is a compiled check-and-coerce function for one contract.
type Validator func(raw any) (any, error)

// CompileValidator binds s and opts into a Validator.
func CompileValidator(s *Schema, opts ...Option) Validator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return func(raw any) (any, error) {
		return validateWith(s, raw, o)
	}
}

// Validate checks raw against s and returns the coerced value, or a
// *ValidationError listing every offending path. Validating the returned
// value again yields the same value.
func Validate(s *Schema, raw any, opts ...Option) (any, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return validateWith(s, raw, o)
}

func validateWith(s *Schema, raw any, o options) (any, error) {
	v := &validator{opts: o}
	out := v.value(s.Type, raw, "")
	if len(v.issues) > 0 {
		return nil, &ValidationError{Schema: s.Name, Issues: v.issues}
	}
	return out, nil
}

type validator struct {
	opts   options
	issues []Issue
}

func (v *validator) fail(path, code, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) value(t Type, raw any, path string) any {
	switch st := t.(type) {
	case Optional:
		if raw == nil {
			return nil
		}
		return v.value(st.Of, raw, path)
	case String:
		return v.str(st, raw, path)
	case Number:
		return v.number(st, raw, path)
	case Boolean:
		return v.boolean(raw, path)
	case Enum:
		return v.enum(st, raw, path)
	case Array:
		return v.array(st, raw, path)
	case Object:
		return v.object(st, raw, path)
	}
	v.fail(path, IssueInvalidType, "unsupported schema type %T", t)
	return nil
}

func (v *validator) str(st String, raw any, path string) any {
	s, ok := raw.(string)
	if !ok {
		v.fail(path, IssueInvalidType, "expected string, received %s", typeName(raw))
		return nil
	}

	n := utf8.RuneCountInString(s)
	if n < st.MinLength {
		v.fail(path, IssueTooSmall, "must contain at least %d character(s)", st.MinLength)
	}
	if st.MaxLength > 0 && n > st.MaxLength {
		v.fail(path, IssueTooBig, "must contain at most %d character(s)", st.MaxLength)
	}
	if st.Pattern != nil && !st.Pattern.MatchString(s) {
		v.fail(path, IssueInvalidMatch, "does not match pattern %s", st.Pattern.String())
	}
	return s
}

func (v *validator) number(st Number, raw any, path string) any {
	f, ok := toFloat(raw)
	if !ok && v.opts.coerceStrings {
		if s, isStr := raw.(string); isStr {
			f, ok = parseNumber(s)
		}
	}
	if !ok {
		v.fail(path, IssueInvalidType, "expected number, received %s", typeName(raw))
		return nil
	}

	before := len(v.issues)
	if st.Integer && f != math.Trunc(f) {
		v.fail(path, IssueNotInteger, "expected integer, received float")
	}
	if st.Positive && f <= 0 {
		v.fail(path, IssueTooSmall, "must be greater than 0")
	}
	if st.Min != nil && f < *st.Min {
		v.fail(path, IssueTooSmall, "must be greater than or equal to %s", formatFloat(*st.Min))
	}
	if st.Max != nil && f > *st.Max {
		v.fail(path, IssueTooBig, "must be less than or equal to %s", formatFloat(*st.Max))
	}
	if len(v.issues) > before {
		return nil
	}
	if !st.Integer {
		return f
	}
	i, ok := toInt64(raw, f)
	if !ok {
		v.failRange(path, f)
		return nil
	}
	return i
}

func (v *validator) failRange(path string, f float64) {
	if f < 0 {
		v.fail(path, IssueTooSmall, "must be greater than or equal to %d", int64(math.MinInt64))
		return
	}
	v.fail(path, IssueTooBig, "must be less than or equal to %d", int64(math.MaxInt64))
}

func (v *validator) boolean(raw any, path string) any {
	switch b := raw.(type) {
	case bool:
		return b
	case string:
		if v.opts.coerceStrings {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
				return parsed
			}
		}
	}
	v.fail(path, IssueInvalidType, "expected boolean, received %s", typeName(raw))
	return nil
}

func (v *validator) enum(st Enum, raw any, path string) any {
	s, ok := raw.(string)
	if !ok {
		v.fail(path, IssueInvalidType, "expected string, received %s", typeName(raw))
		return nil
	}
	if !slices.Contains(st.Values, s) {
		v.fail(path, IssueInvalidEnum, "expected one of %s, received '%s'", strings.Join(st.Values, " | "), s)
		return nil
	}
	return s
}

func (v *validator) array(st Array, raw any, path string) any {
	items, ok := raw.([]any)
	if !ok && v.opts.coerceStrings {
		if s, isStr := raw.(string); isStr {
			items, ok = []any{s}, true
		}
	}
	if !ok {
		v.fail(path, IssueInvalidType, "expected array, received %s", typeName(raw))
		return nil
	}

	if len(items) < st.MinItems {
		v.fail(path, IssueTooSmall, "must contain at least %d element(s)", st.MinItems)
	}
	if st.MaxItems > 0 && len(items) > st.MaxItems {
		v.fail(path, IssueTooBig, "must contain at most %d element(s)", st.MaxItems)
	}

	// Every element is checked so all offending indices are reported.
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = v.value(st.Items, item, fmt.Sprintf("%s[%d]", path, i))
	}
	return out
}

func (v *validator) object(st Object, raw any, path string) any {
	m, ok := raw.(map[string]any)
	if !ok {
		v.fail(path, IssueInvalidType, "expected object, received %s", typeName(raw))
		return nil
	}

	before := len(v.issues)
	out := make(map[string]any, len(st.Fields))
	for _, f := range st.Fields {
		fieldPath := joinPath(path, f.Name)
		value, present := m[f.Name]
		if !present || value == nil {
			if f.Default != nil {
				out[f.Name] = v.value(f.Type, cloneValue(f.Default), fieldPath)
				continue
			}
			if f.required() {
				v.fail(fieldPath, IssueRequired, "required")
			}
			continue
		}
		out[f.Name] = v.value(f.Type, value, fieldPath)
	}

	if len(v.issues) > before {
		return nil
	}
	for _, ref := range st.Refinements {
		if !ref.Check(out) {
			msg := ref.Message
			if msg == "" {
				msg = "invalid value"
			}
			v.issues = append(v.issues, Issue{Path: joinPath(path, ref.Path), Code: IssueCustom, Message: msg})
		}
	}
	return out
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	if name == "" {
		return parent
	}
	return parent + "." + name
}

func toFloat(raw any) (float64, bool) {
	var f float64
	switch n := raw.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 converts an integral value to int64. Exact integer inputs keep
// their precision; anything else must lie in [-2^63, 2^63).
func toInt64(raw any, f float64) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(raw); ok {
		return "number"
	}
	return fmt.Sprintf("%T", raw)
}

// cloneValue deep-copies defaults so callers never share mutable state with
// the contract.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}
