package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable code carried in the error envelope.
type ErrorCode string

const (
	// ErrorCodeValidation indicates the inbound payload failed its schema.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrorCodeBadRequest indicates a malformed request (e.g. unparseable JSON).
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"

	// ErrorCodeUnauthorized indicates missing or rejected credentials.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrorCodeForbidden indicates the caller may not perform the operation.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrorCodeNotFound indicates a resource or route was not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeMethodNotAllowed indicates the route exists for other methods only.
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"

	// ErrorCodeConflict indicates a state conflict.
	ErrorCodeConflict ErrorCode = "CONFLICT"

	// ErrorCodePayloadTooLarge indicates the request body exceeded the limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrorCodeInternal indicates a server-side defect. Never carries detail.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// GenericInternalMessage is the only message a caller ever sees for a 5xx.
const GenericInternalMessage = "An unexpected error occurred"

// APIError is the canonical error rendered into the error envelope.
// Handlers return it to choose the code, message and status seen by the caller.
type APIError struct {
	// Code is the envelope error code
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Details is optional structured context (e.g. per-field validation issues)
	Details map[string]any `json:"details,omitempty"`

	// StatusCode overrides the status derived from Code
	StatusCode int `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Code {
	case ErrorCodeValidation, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// WithDetails attaches structured details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the internal cause. It is logged, never rendered.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrBadRequest creates a bad request error.
func ErrBadRequest(message string) *APIError {
	return NewAPIError(ErrorCodeBadRequest, message)
}

// ErrUnauthorized creates an unauthorized error.
func ErrUnauthorized(message string) *APIError {
	return NewAPIError(ErrorCodeUnauthorized, message)
}

// ErrForbidden creates a forbidden error.
func ErrForbidden(message string) *APIError {
	return NewAPIError(ErrorCodeForbidden, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorCodeNotFound, message)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorCodeConflict, message)
}

// ErrInternal creates an internal error wrapping cause. The message shown to
// callers is always GenericInternalMessage.
func ErrInternal(cause error) *APIError {
	return NewAPIError(ErrorCodeInternal, GenericInternalMessage).WithCause(cause)
}

// ToAPIError converts any error to an APIError. Errors that are not already
// APIErrors become a generic internal error so no detail leaks to the caller.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode() >= http.StatusInternalServerError {
			return &APIError{
				Code:       ErrorCodeInternal,
				Message:    GenericInternalMessage,
				StatusCode: apiErr.StatusCode,
				cause:      apiErr,
			}
		}
		return apiErr
	}
	return ErrInternal(err)
}
