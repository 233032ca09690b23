package learning

import (
	"regexp"

	"github.com/tjfontaine/coursegate/internal/schema"
)

// Schema names registered by RegisterSchemas.
const (
	SchemaCourseListQuery    = "courses.list.query"
	SchemaCourseListResponse = "courses.list.response"
	SchemaCourseParams       = "course.params"
	SchemaCourseDetail       = "course.detail"
	SchemaCartParams         = "cart.params"
	SchemaCartItemAdd        = "cart.item.add"
	SchemaCartView           = "cart.view"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

var levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

var courseSummary = schema.Object{Fields: []schema.Field{
	{Name: "id", Type: schema.String{MinLength: 1}},
	{Name: "title", Type: schema.String{MinLength: 1}},
	{Name: "category", Type: schema.String{MinLength: 1}},
	{Name: "level", Type: schema.Enum{Values: levels}},
	{Name: "price", Type: schema.Number{Min: schema.Bound(0)}},
	{Name: "instructor", Type: schema.String{}},
	{Name: "rating", Type: schema.Number{Min: schema.Bound(0), Max: schema.Bound(5)}},
	{Name: "durationMinutes", Type: schema.Number{Integer: true, Min: schema.Bound(0)}},
}}

var courseDetail = schema.Object{Fields: append(courseSummary.Fields[:len(courseSummary.Fields):len(courseSummary.Fields)],
	schema.Field{Name: "description", Type: schema.String{}},
	schema.Field{Name: "syllabus", Type: schema.Array{Items: schema.String{MinLength: 1}}},
)}

var cartItem = schema.Object{Fields: []schema.Field{
	{Name: "courseId", Type: schema.String{MinLength: 1}},
	{Name: "title", Type: schema.String{}},
	{Name: "price", Type: schema.Number{Min: schema.Bound(0)}},
	{Name: "quantity", Type: schema.Number{Integer: true, Positive: true, Max: schema.Bound(MaxLineQuantity)}},
	{Name: "subtotal", Type: schema.Number{Min: schema.Bound(0)}},
}}

var idParam = schema.String{MinLength: 1, MaxLength: 64, Pattern: idPattern}

func contracts() map[string]schema.Type {
	return map[string]schema.Type{
		SchemaCourseListQuery: schema.Object{Fields: append(schema.PageQueryFields(DefaultPageSize, MaxPageSize),
			schema.Field{Name: "category", Type: schema.Optional{Of: schema.String{MinLength: 1}}},
			schema.Field{Name: "level", Type: schema.Optional{Of: schema.Enum{Values: levels}}},
			schema.Field{Name: "search", Type: schema.Optional{Of: schema.String{MaxLength: 100}}},
		)},
		SchemaCourseListResponse: schema.Object{Fields: []schema.Field{
			{Name: "courses", Type: schema.Array{Items: courseSummary}},
			{Name: "pagination", Type: schema.PaginationMeta},
		}},
		SchemaCourseParams: schema.Object{Fields: []schema.Field{
			{Name: "courseId", Type: idParam},
		}},
		SchemaCourseDetail: courseDetail,
		SchemaCartParams: schema.Object{Fields: []schema.Field{
			{Name: "cartId", Type: idParam},
		}},
		SchemaCartItemAdd: schema.Object{Fields: []schema.Field{
			{Name: "courseId", Type: schema.String{MinLength: 1}},
			{Name: "quantity", Type: schema.Number{Integer: true, Positive: true, Max: schema.Bound(MaxLineQuantity)}},
		}},
		SchemaCartView: schema.Object{Fields: []schema.Field{
			{Name: "id", Type: schema.String{MinLength: 1}},
			{Name: "items", Type: schema.Array{Items: cartItem}},
			{Name: "itemCount", Type: schema.Number{Integer: true, Min: schema.Bound(0)}},
			{Name: "total", Type: schema.Number{Min: schema.Bound(0)}},
		}},
	}
}

// CourseSchemas lists the contracts used by the course routes.
var CourseSchemas = []string{SchemaCourseListQuery, SchemaCourseListResponse, SchemaCourseParams, SchemaCourseDetail}

// CartSchemas lists the contracts used by the cart routes.
var CartSchemas = []string{SchemaCartParams, SchemaCartItemAdd, SchemaCartView}

// RegisterSchemas registers the named contracts. A name already taken is a
// *schema.DuplicateSchemaError.
func RegisterSchemas(reg *schema.Registry, names ...string) error {
	all := contracts()
	for _, name := range names {
		t, ok := all[name]
		if !ok {
			return &schema.UnknownSchemaError{Name: name}
		}
		if _, err := reg.Register(name, t); err != nil {
			return err
		}
	}
	return nil
}
