package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/pipeline"
)

type courseList struct {
	Courses    []Course          `json:"courses"`
	Pagination domain.Pagination `json:"pagination"`
}

// CourseRoutes returns the catalog endpoints.
func CourseRoutes(catalog *Catalog) []pipeline.Route {
	return []pipeline.Route{
		{
			Method:   http.MethodGet,
			Path:     "/api/v1/courses",
			Name:     "listCourses",
			Summary:  "List courses with optional filters",
			Tags:     []string{"courses"},
			Request:  SchemaCourseListQuery,
			Response: SchemaCourseListResponse,
			Handler: func(_ context.Context, call *pipeline.Call) (*pipeline.Result, error) {
				q := call.Object()
				page, limit := intField(q, "page", 1), intField(q, "limit", DefaultPageSize)
				filter := CourseFilter{
					Category: stringField(q, "category"),
					Level:    stringField(q, "level"),
					Search:   stringField(q, "search"),
				}

				courses, total := catalog.List(filter, page, limit)
				return pipeline.OK(courseList{
					Courses:    courses,
					Pagination: domain.NewPagination(page, limit, total),
				}), nil
			},
		},
		{
			Method:   http.MethodGet,
			Path:     "/api/v1/courses/{courseId}",
			Name:     "getCourse",
			Summary:  "Get one course",
			Tags:     []string{"courses"},
			Params:   SchemaCourseParams,
			Response: SchemaCourseDetail,
			Handler: func(_ context.Context, call *pipeline.Call) (*pipeline.Result, error) {
				course, ok := catalog.Get(call.Param("courseId"))
				if !ok {
					return nil, domain.ErrNotFound("Course not found")
				}
				return pipeline.OK(course), nil
			},
		},
	}
}

// CartRoutes returns the cart endpoints. Courses are looked up in catalog.
func CartRoutes(carts *CartStore, catalog *Catalog) []pipeline.Route {
	return []pipeline.Route{
		{
			Method:   http.MethodGet,
			Path:     "/api/v1/carts/{cartId}",
			Name:     "getCart",
			Summary:  "Get a cart",
			Tags:     []string{"cart"},
			Params:   SchemaCartParams,
			Response: SchemaCartView,
			Handler: func(_ context.Context, call *pipeline.Call) (*pipeline.Result, error) {
				return pipeline.OK(carts.Get(call.Param("cartId"))), nil
			},
		},
		{
			Method:   http.MethodPost,
			Path:     "/api/v1/carts/{cartId}/items",
			Name:     "addCartItem",
			Summary:  "Add a course to a cart",
			Tags:     []string{"cart"},
			Params:   SchemaCartParams,
			Request:  SchemaCartItemAdd,
			Response: SchemaCartView,
			Status:   http.StatusCreated,
			Handler: func(_ context.Context, call *pipeline.Call) (*pipeline.Result, error) {
				in := call.Object()
				courseID := stringField(in, "courseId")
				course, ok := catalog.Get(courseID)
				if !ok {
					return nil, domain.ErrNotFound("Course not found").
						WithDetails(map[string]any{"courseId": courseID})
				}

				quantity := intField(in, "quantity", 1)
				cart, err := carts.Add(call.Param("cartId"), course, quantity)
				if err != nil {
					return nil, domain.ErrConflict(fmt.Sprintf("A cart holds at most %d of one course", MaxLineQuantity)).
						WithDetails(map[string]any{"courseId": courseID, "quantity": quantity}).
						WithCause(err)
				}
				return &pipeline.Result{Data: cart, Message: "Item added to cart"}, nil
			},
		},
	}
}

func stringField(m map[string]any, name string) string {
	s, _ := m[name].(string)
	return s
}

// intField reads a validated integer. Validated integers are int64, but
// defaults keep the type they were declared with.
func intField(m map[string]any, name string, fallback int) int {
	switch n := m[name].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}
