package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Serializer is a compiled shape-enforcing function for one contract.
type Serializer func(value any) (any, error)

// CompileSerializer binds s into a Serializer.
func CompileSerializer(s *Schema) Serializer {
	return func(value any) (any, error) {
		return Serialize(s, value)
	}
}

// Serialize projects value onto the shape declared by s. Fields not declared
// in s are dropped; a missing required field or a value of the wrong kind is
// reported as a *SerializationError. Value constraints (lengths, bounds) are
// not re-checked on the way out.
//
// value may be any JSON-encodable Go value; structs are projected through
// their JSON representation.
func Serialize(s *Schema, value any) (any, error) {
	generic, err := toGeneric(value)
	if err != nil {
		return nil, &SerializationError{
			Schema: s.Name,
			Issues: []Issue{{Code: IssueUnencodable, Message: err.Error()}},
		}
	}

	p := &projector{}
	out := p.value(s.Type, generic, "")
	if len(p.issues) > 0 {
		return nil, &SerializationError{Schema: s.Name, Issues: p.issues}
	}
	return out, nil
}

type projector struct {
	issues []Issue
}

func (p *projector) fail(path, code, format string, args ...any) {
	p.issues = append(p.issues, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (p *projector) value(t Type, v any, path string) any {
	switch st := t.(type) {
	case Optional:
		if v == nil {
			return nil
		}
		return p.value(st.Of, v, path)
	case String:
		if s, ok := v.(string); ok {
			return s
		}
		p.fail(path, IssueInvalidType, "expected string, got %s", typeName(v))
	case Number:
		f, ok := toFloat(v)
		if !ok {
			p.fail(path, IssueInvalidType, "expected number, got %s", typeName(v))
			return nil
		}
		if st.Integer && f != math.Trunc(f) {
			p.fail(path, IssueNotInteger, "expected integer, got %s", formatFloat(f))
			return nil
		}
		if !st.Integer {
			return f
		}
		i, ok := toInt64(v, f)
		if !ok {
			p.fail(path, IssueTooBig, "integer %s out of int64 range", formatFloat(f))
			return nil
		}
		return i
	case Boolean:
		if b, ok := v.(bool); ok {
			return b
		}
		p.fail(path, IssueInvalidType, "expected boolean, got %s", typeName(v))
	case Enum:
		s, ok := v.(string)
		if ok && slices.Contains(st.Values, s) {
			return s
		}
		p.fail(path, IssueInvalidEnum, "value %v is not a declared enum member", v)
	case Array:
		items, ok := v.([]any)
		if !ok {
			p.fail(path, IssueInvalidType, "expected array, got %s", typeName(v))
			return nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = p.value(st.Items, item, fmt.Sprintf("%s[%d]", path, i))
		}
		return out
	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			p.fail(path, IssueInvalidType, "expected object, got %s", typeName(v))
			return nil
		}
		out := make(map[string]any, len(st.Fields))
		for _, f := range st.Fields {
			fieldPath := joinPath(path, f.Name)
			fv, present := m[f.Name]
			if !present || fv == nil {
				if f.Default != nil {
					out[f.Name] = p.value(f.Type, cloneValue(f.Default), fieldPath)
					continue
				}
				if f.required() {
					// A nil Go slice encodes as null; render it as empty.
					if _, isArray := f.Type.(Array); isArray && present {
						out[f.Name] = []any{}
						continue
					}
					p.fail(fieldPath, IssueRequired, "missing required field")
				}
				continue
			}
			out[f.Name] = p.value(f.Type, fv, fieldPath)
		}
		return out
	default:
		p.fail(path, IssueInvalidType, "unsupported schema type %T", t)
	}
	return nil
}

// toGeneric converts a Go value into the map/slice/scalar form produced by
// decoding JSON. Numbers are kept as json.Number so integers stay exact.
func toGeneric(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool:
		return value, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
