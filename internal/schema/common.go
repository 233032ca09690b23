package schema

// PageQueryFields returns the page/limit query fields shared by list routes.
// Both default when absent, so a request without query parameters lands on
// page 1 with defaultLimit items.
func PageQueryFields(defaultLimit, maxLimit int) []Field {
	return []Field{
		{Name: "page", Type: Number{Integer: true, Min: Bound(1)}, Default: 1},
		{Name: "limit", Type: Number{Integer: true, Min: Bound(1), Max: Bound(float64(maxLimit))}, Default: defaultLimit},
	}
}

// PaginationMeta is the response shape of domain.Pagination.
var PaginationMeta = Object{
	Fields: []Field{
		{Name: "currentPage", Type: Number{Integer: true, Min: Bound(1)}},
		{Name: "totalPages", Type: Number{Integer: true, Min: Bound(0)}},
		{Name: "totalItems", Type: Number{Integer: true, Min: Bound(0)}},
		{Name: "hasNext", Type: Boolean{}},
		{Name: "hasPrev", Type: Boolean{}},
	},
}
