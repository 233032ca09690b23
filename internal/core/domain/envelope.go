package domain

// SuccessEnvelope wraps every successful response body.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody is the error member of ErrorEnvelope.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewSuccessEnvelope wraps data in a success envelope.
func NewSuccessEnvelope(data any, message string) SuccessEnvelope {
	return SuccessEnvelope{Success: true, Data: data, Message: message}
}

// NewErrorEnvelope renders an APIError into the error envelope.
func NewErrorEnvelope(err *APIError) ErrorEnvelope {
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	}
}

// Pagination is the pagination block returned by list routes.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination computes the pagination block for a 1-based page of size
// limit over total items. An empty collection has zero pages.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// Offset returns the zero-based index of the first item on the page.
func (p Pagination) Offset(limit int) int {
	return (p.CurrentPage - 1) * limit
}
