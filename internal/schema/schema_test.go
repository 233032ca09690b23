package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/xeipuuv/gojsonschema"
)

var lineItem = Object{
	Fields: []Field{
		{Name: "courseId", Type: String{MinLength: 1}},
		{Name: "quantity", Type: Number{Integer: true, Positive: true}},
	},
}

var passwordChange = Object{
	Fields: []Field{
		{Name: "password", Type: String{MinLength: 8}},
		{Name: "confirmPassword", Type: String{MinLength: 8}},
		{Name: "remember", Type: Boolean{}, Default: false},
	},
	Refinements: []Refinement{{
		Path:    "confirmPassword",
		Message: "passwords do not match",
		Check: func(obj map[string]any) bool {
			return obj["password"] == obj["confirmPassword"]
		},
	}},
}

var listQuery = Object{
	Fields: append(PageQueryFields(12, 50),
		Field{Name: "level", Type: Optional{Of: Enum{Values: []string{"beginner", "advanced"}}}},
		Field{Name: "free", Type: Optional{Of: Boolean{}}},
		Field{Name: "tags", Type: Optional{Of: Array{Items: String{}}}},
	),
}

func mustSchema(t *testing.T, name string, typ Type) *Schema {
	t.Helper()
	s, err := NewRegistry().Register(name, typ)
	if err != nil {
		t.Fatalf("Register(%q) error = %v", name, err)
	}
	return s
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register("cart.item", lineItem); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("duplicate name", func(t *testing.T) {
		_, err := r.Register("cart.item", String{})
		var dup *DuplicateSchemaError
		if !errors.As(err, &dup) {
			t.Fatalf("Register() error = %v, want DuplicateSchemaError", err)
		}
		if dup.Name != "cart.item" {
			t.Errorf("Name = %q, want cart.item", dup.Name)
		}
	})

	t.Run("resolve known", func(t *testing.T) {
		s, err := r.Resolve("cart.item")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if s.Name != "cart.item" || s.Type.Kind() != KindObject {
			t.Errorf("Resolve() = %+v", s)
		}
	})

	t.Run("resolve unknown", func(t *testing.T) {
		_, err := r.Resolve("missing")
		var unknown *UnknownSchemaError
		if !errors.As(err, &unknown) {
			t.Fatalf("Resolve() error = %v, want UnknownSchemaError", err)
		}
	})

	t.Run("sealed", func(t *testing.T) {
		sealed := NewRegistry()
		sealed.Seal()
		if _, err := sealed.Register("late", String{}); !errors.Is(err, ErrRegistrySealed) {
			t.Errorf("Register() error = %v, want ErrRegistrySealed", err)
		}
	})

	t.Run("names sorted", func(t *testing.T) {
		r2 := NewRegistry()
		r2.MustRegister("b", String{})
		r2.MustRegister("a", String{})
		if got := r2.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Errorf("Names() = %v", got)
		}
	})
}

func TestRegistry_RejectsBrokenContracts(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{name: "nil type", typ: nil},
		{name: "empty enum", typ: Enum{}},
		{name: "duplicate field", typ: Object{Fields: []Field{{Name: "a", Type: String{}}, {Name: "a", Type: String{}}}}},
		{name: "nested nil", typ: Array{Items: Object{Fields: []Field{{Name: "x"}}}}},
		{name: "inverted bounds", typ: Number{Min: Bound(5), Max: Bound(1)}},
		{name: "refinement without check", typ: Object{Refinements: []Refinement{{Path: "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry().Register("broken", tt.typ); err == nil {
				t.Error("Register() error = nil, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		typ       Type
		raw       any
		opts      []Option
		want      any
		wantPaths []string
	}{
		{
			name: "valid line item",
			typ:  lineItem,
			raw:  map[string]any{"courseId": "go-101", "quantity": float64(2), "extra": "dropped"},
			want: map[string]any{"courseId": "go-101", "quantity": int64(2)},
		},
		{
			name:      "zero quantity",
			typ:       lineItem,
			raw:       map[string]any{"courseId": "go-101", "quantity": float64(0)},
			wantPaths: []string{"quantity"},
		},
		{
			name:      "collects every field",
			typ:       lineItem,
			raw:       map[string]any{"quantity": 1.5},
			wantPaths: []string{"courseId", "quantity"},
		},
		{
			name: "query defaults",
			typ:  listQuery,
			raw:  map[string]any{},
			opts: []Option{CoerceStrings()},
			want: map[string]any{"page": int64(1), "limit": int64(12)},
		},
		{
			name: "query coercion",
			typ:  listQuery,
			raw:  map[string]any{"page": "3", "limit": "20", "free": "true", "tags": "go"},
			opts: []Option{CoerceStrings()},
			want: map[string]any{"page": int64(3), "limit": int64(20), "free": true, "tags": []any{"go"}},
		},
		{
			name:      "no coercion without option",
			typ:       listQuery,
			raw:       map[string]any{"page": "3"},
			wantPaths: []string{"page"},
		},
		{
			name:      "limit above maximum",
			typ:       listQuery,
			raw:       map[string]any{"limit": "51"},
			opts:      []Option{CoerceStrings()},
			wantPaths: []string{"limit"},
		},
		{
			name:      "enum mismatch",
			typ:       listQuery,
			raw:       map[string]any{"level": "expert"},
			wantPaths: []string{"level"},
		},
		{
			name: "array reports all offending indices",
			typ:  Array{Items: lineItem},
			raw: []any{
				map[string]any{"courseId": "a", "quantity": float64(1)},
				map[string]any{"courseId": "b", "quantity": float64(-1)},
				map[string]any{"courseId": "", "quantity": float64(1)},
			},
			wantPaths: []string{"[1].quantity", "[2].courseId"},
		},
		{
			name: "refinement after defaults",
			typ:  passwordChange,
			raw:  map[string]any{"password": "correct horse", "confirmPassword": "correct horse"},
			want: map[string]any{"password": "correct horse", "confirmPassword": "correct horse", "remember": false},
		},
		{
			name:      "refinement failure",
			typ:       passwordChange,
			raw:       map[string]any{"password": "correct horse", "confirmPassword": "battery staple"},
			wantPaths: []string{"confirmPassword"},
		},
		{
			name:      "refinement skipped when fields invalid",
			typ:       passwordChange,
			raw:       map[string]any{"password": "short", "confirmPassword": "different"},
			wantPaths: []string{"password"},
		},
		{
			name: "pattern",
			typ:  Object{Fields: []Field{{Name: "slug", Type: String{Pattern: regexp.MustCompile(`^[a-z0-9-]+$`)}}}},
			raw:  map[string]any{"slug": "Not A Slug"},

			wantPaths: []string{"slug"},
		},
		{
			name:      "not an object",
			typ:       lineItem,
			raw:       "nope",
			wantPaths: []string{""},
		},
		{
			name:      "integer above int64 range",
			typ:       lineItem,
			raw:       map[string]any{"courseId": "go-101", "quantity": json.Number("1e20")},
			wantPaths: []string{"quantity"},
		},
		{
			name:      "integer below int64 range",
			typ:       Object{Fields: []Field{{Name: "offset", Type: Number{Integer: true}}}},
			raw:       map[string]any{"offset": float64(-1e19)},
			wantPaths: []string{"offset"},
		},
		{
			name:      "coerced integer above int64 range",
			typ:       listQuery,
			raw:       map[string]any{"page": "9223372036854775808"},
			opts:      []Option{CoerceStrings()},
			wantPaths: []string{"page"},
		},
		{
			name: "exponent form integer",
			typ:  lineItem,
			raw:  map[string]any{"courseId": "go-101", "quantity": json.Number("2e3")},
			want: map[string]any{"courseId": "go-101", "quantity": int64(2000)},
		},
		{
			name: "large exact integer keeps precision",
			typ:  lineItem,
			raw:  map[string]any{"courseId": "go-101", "quantity": json.Number("9007199254740993")},
			want: map[string]any{"courseId": "go-101", "quantity": int64(9007199254740993)},
		},
		{
			name: "max int64",
			typ:  lineItem,
			raw:  map[string]any{"courseId": "go-101", "quantity": json.Number("9223372036854775807")},
			want: map[string]any{"courseId": "go-101", "quantity": int64(9223372036854775807)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSchema(t, "test", tt.typ)
			got, err := Validate(s, tt.raw, tt.opts...)

			if len(tt.wantPaths) > 0 {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Validate() error = %v, want ValidationError", err)
				}
				if fields := verr.Fields(); !reflect.DeepEqual(fields, tt.wantPaths) {
					t.Errorf("Fields() = %q, want %q (issues %+v)", fields, tt.wantPaths, verr.Issues)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Validate() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	cases := []struct {
		typ  Type
		raw  any
		opts []Option
	}{
		{typ: lineItem, raw: map[string]any{"courseId": "x", "quantity": float64(3), "junk": true}},
		{typ: listQuery, raw: map[string]any{"page": "2", "tags": "a"}, opts: []Option{CoerceStrings()}},
		{typ: listQuery, raw: map[string]any{}},
		{typ: passwordChange, raw: map[string]any{"password": "abcdefgh", "confirmPassword": "abcdefgh", "remember": true}},
		{typ: Array{Items: Number{}}, raw: []any{1.5, int64(2), 3}},
		{typ: lineItem, raw: map[string]any{"courseId": "x", "quantity": json.Number("9223372036854775807")}},
		{typ: lineItem, raw: map[string]any{"courseId": "x", "quantity": json.Number("4e18")}},
	}

	for i, c := range cases {
		s := mustSchema(t, "idem", c.typ)
		first, err := Validate(s, c.raw, c.opts...)
		if err != nil {
			t.Fatalf("case %d: first Validate() error = %v", i, err)
		}
		second, err := Validate(s, first)
		if err != nil {
			t.Fatalf("case %d: second Validate() error = %v", i, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("case %d: Validate(Validate(v)) = %#v, want %#v", i, second, first)
		}
	}
}

func TestCompileValidator(t *testing.T) {
	s := mustSchema(t, "query", listQuery)
	check := CompileValidator(s, CoerceStrings())

	got, err := check(map[string]any{"page": "4"})
	if err != nil {
		t.Fatalf("validator error = %v", err)
	}
	if got.(map[string]any)["page"] != int64(4) {
		t.Errorf("page = %#v, want 4", got.(map[string]any)["page"])
	}
}

type courseRow struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	PriceCents   int      `json:"priceCents"`
	InternalCost int      `json:"internalCost"`
	Tags         []string `json:"tags"`
}

var courseOut = Object{
	Fields: []Field{
		{Name: "id", Type: String{}},
		{Name: "title", Type: String{}},
		{Name: "priceCents", Type: Number{Integer: true}},
		{Name: "tags", Type: Array{Items: String{}}},
		{Name: "subtitle", Type: Optional{Of: String{}}},
	},
}

func TestSerialize(t *testing.T) {
	s := mustSchema(t, "course", courseOut)

	t.Run("drops undeclared fields", func(t *testing.T) {
		got, err := Serialize(s, courseRow{ID: "c1", Title: "Go", PriceCents: 1999, InternalCost: 7, Tags: []string{"go"}})
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}
		want := map[string]any{"id": "c1", "title": "Go", "priceCents": int64(1999), "tags": []any{"go"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Serialize() = %#v, want %#v", got, want)
		}
	})

	t.Run("nil slice renders empty", func(t *testing.T) {
		got, err := Serialize(s, courseRow{ID: "c1", Title: "Go"})
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}
		if tags := got.(map[string]any)["tags"]; !reflect.DeepEqual(tags, []any{}) {
			t.Errorf("tags = %#v, want empty", tags)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := Serialize(s, map[string]any{"id": "c1", "tags": []any{}})
		var serr *SerializationError
		if !errors.As(err, &serr) {
			t.Fatalf("Serialize() error = %v, want SerializationError", err)
		}
		if len(serr.Issues) != 2 || serr.Issues[0].Path != "title" || serr.Issues[1].Path != "priceCents" {
			t.Errorf("Issues = %+v", serr.Issues)
		}
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := Serialize(s, map[string]any{"id": 1, "title": "x", "priceCents": 1.5, "tags": []any{}})
		var serr *SerializationError
		if !errors.As(err, &serr) {
			t.Fatalf("Serialize() error = %v, want SerializationError", err)
		}
		if len(serr.Issues) != 2 {
			t.Errorf("Issues = %+v, want 2", serr.Issues)
		}
	})

	t.Run("unencodable value", func(t *testing.T) {
		_, err := Serialize(s, map[string]any{"id": make(chan int)})
		var serr *SerializationError
		if !errors.As(err, &serr) || serr.Issues[0].Code != IssueUnencodable {
			t.Fatalf("Serialize() error = %v, want unencodable SerializationError", err)
		}
	})

	t.Run("integer out of int64 range", func(t *testing.T) {
		counter := mustSchema(t, "counter", Object{Fields: []Field{{Name: "n", Type: Number{Integer: true}}}})
		_, err := Serialize(counter, map[string]any{"n": 1e20})
		var serr *SerializationError
		if !errors.As(err, &serr) || serr.Issues[0].Path != "n" || serr.Issues[0].Code != IssueTooBig {
			t.Fatalf("Serialize() error = %v, want too_big SerializationError on n", err)
		}

		got, err := Serialize(counter, map[string]any{"n": int64(9223372036854775807)})
		if err != nil {
			t.Fatalf("Serialize(max int64) error = %v", err)
		}
		if n := got.(map[string]any)["n"]; n != int64(9223372036854775807) {
			t.Errorf("n = %#v, want max int64", n)
		}
	})

	t.Run("output holds only declared keys", func(t *testing.T) {
		nested := mustSchema(t, "nested", Object{Fields: []Field{
			{Name: "course", Type: courseOut},
			{Name: "items", Type: Array{Items: courseOut}},
		}})
		got, err := Serialize(nested, map[string]any{
			"course": courseRow{ID: "a", Title: "A", InternalCost: 1},
			"items":  []courseRow{{ID: "b", Title: "B", InternalCost: 2}},
			"secret": "hidden",
		})
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}
		assertDeclaredOnly(t, nested.Type, got)
	})
}

func assertDeclaredOnly(t *testing.T, typ Type, v any) {
	t.Helper()
	switch st := typ.(type) {
	case Optional:
		if v != nil {
			assertDeclaredOnly(t, st.Of, v)
		}
	case Array:
		for _, item := range v.([]any) {
			assertDeclaredOnly(t, st.Items, item)
		}
	case Object:
		declared := make(map[string]Type, len(st.Fields))
		for _, f := range st.Fields {
			declared[f.Name] = f.Type
		}
		for k, fv := range v.(map[string]any) {
			ft, ok := declared[k]
			if !ok {
				t.Errorf("undeclared field %q in output", k)
				continue
			}
			assertDeclaredOnly(t, ft, fv)
		}
	}
}

func TestCompileJSONSchema(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("cart.item", lineItem)
	r.MustRegister("courses.query", listQuery)
	r.MustRegister("password.change", passwordChange)

	for _, name := range r.Names() {
		if _, err := r.CompileJSONSchema(name); err != nil {
			t.Errorf("CompileJSONSchema(%q) error = %v", name, err)
		}
	}

	if _, err := r.CompileJSONSchema("missing"); err == nil {
		t.Error("CompileJSONSchema(missing) error = nil")
	}
}

func TestJSONSchema_AgreesWithValidate(t *testing.T) {
	r := NewRegistry()
	s := r.MustRegister("cart.item", lineItem)
	compiled, err := r.CompileJSONSchema("cart.item")
	if err != nil {
		t.Fatalf("CompileJSONSchema() error = %v", err)
	}

	inputs := []map[string]any{
		{"courseId": "go", "quantity": float64(1)},
		{"courseId": "go", "quantity": float64(0)},
		{"courseId": "", "quantity": float64(2)},
		{"quantity": float64(2)},
	}
	for _, in := range inputs {
		_, verr := Validate(s, in)
		res, err := compiled.Validate(gojsonschema.NewGoLoader(in))
		if err != nil {
			t.Fatalf("gojsonschema Validate() error = %v", err)
		}
		if (verr == nil) != res.Valid() {
			t.Errorf("input %v: Validate ok=%v, json schema ok=%v", in, verr == nil, res.Valid())
		}
	}
}
