package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const jsonSchemaDraft = "http://json-schema.org/draft-07/schema#"

// JSONSchema renders the contract registered under name as a draft-07 JSON
// Schema document.
func (r *Registry) JSONSchema(name string) (map[string]any, error) {
	s, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	doc := ToJSONSchema(s.Type)
	doc["$schema"] = jsonSchemaDraft
	doc["title"] = s.Name
	return doc, nil
}

// CompileJSONSchema renders the contract under name and loads it with
// gojsonschema, which fails if the rendered document is not a valid schema.
func (r *Registry) CompileJSONSchema(name string) (*gojsonschema.Schema, error) {
	doc, err := r.JSONSchema(name)
	if err != nil {
		return nil, err
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile json schema %q: %w", name, err)
	}
	return compiled, nil
}

// ToJSONSchema renders t as a JSON Schema fragment. Refinements have no JSON
// Schema form and are omitted.
func ToJSONSchema(t Type) map[string]any {
	switch st := t.(type) {
	case Optional:
		return ToJSONSchema(st.Of)
	case String:
		doc := map[string]any{"type": "string"}
		if st.MinLength > 0 {
			doc["minLength"] = st.MinLength
		}
		if st.MaxLength > 0 {
			doc["maxLength"] = st.MaxLength
		}
		if st.Pattern != nil {
			doc["pattern"] = st.Pattern.String()
		}
		return doc
	case Number:
		doc := map[string]any{"type": "number"}
		if st.Integer {
			doc["type"] = "integer"
		}
		if st.Positive {
			doc["exclusiveMinimum"] = 0
		}
		if st.Min != nil {
			doc["minimum"] = *st.Min
		}
		if st.Max != nil {
			doc["maximum"] = *st.Max
		}
		return doc
	case Boolean:
		return map[string]any{"type": "boolean"}
	case Enum:
		values := make([]any, len(st.Values))
		for i, v := range st.Values {
			values[i] = v
		}
		return map[string]any{"type": "string", "enum": values}
	case Array:
		doc := map[string]any{
			"type":  "array",
			"items": ToJSONSchema(st.Items),
		}
		if st.MinItems > 0 {
			doc["minItems"] = st.MinItems
		}
		if st.MaxItems > 0 {
			doc["maxItems"] = st.MaxItems
		}
		return doc
	case Object:
		props := make(map[string]any, len(st.Fields))
		var required []any
		for _, f := range st.Fields {
			prop := ToJSONSchema(f.Type)
			if f.Default != nil {
				prop["default"] = f.Default
			}
			props[f.Name] = prop
			if f.required() {
				required = append(required, f.Name)
			}
		}
		doc := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			doc["required"] = required
		}
		return doc
	}
	return map[string]any{}
}
