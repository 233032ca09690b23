package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/tjfontaine/coursegate/internal/identity"
)

// State is a request's position in the pipeline.
type State int

const (
	StateArrived State = iota
	StateCORSChecked
	StateValidated
	StateAuthenticatedContext
	StateHandled
	StateSerialized
	StateCompleted
	StateErrored
)

var stateNames = [...]string{
	StateArrived:              "ARRIVED",
	StateCORSChecked:          "CORS_CHECKED",
	StateValidated:            "VALIDATED",
	StateAuthenticatedContext: "AUTHENTICATED_CONTEXT",
	StateHandled:              "HANDLED",
	StateSerialized:           "SERIALIZED",
	StateCompleted:            "COMPLETED",
	StateErrored:              "ERRORED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Source selects where a route's request schema reads its input.
type Source int

const (
	// SourceAuto reads the query string for GET, HEAD and DELETE and the JSON
	// body otherwise.
	SourceAuto Source = iota
	SourceBody
	SourceQuery
)

// HandlerFunc is a route handler. It sees only validated input and returns
// the value to serialize against the route's response schema.
type HandlerFunc func(ctx context.Context, call *Call) (*Result, error)

// Route declares one endpoint and its contracts.
type Route struct {
	Method  string
	Path    string
	Name    string
	Summary string
	Tags    []string

	// Request names the schema for the body or query (see From).
	Request string
	From    Source
	// Params names the schema for chi URL parameters. Params are text, so
	// they are validated with string coercion.
	Params string
	// Response names the schema the result data is serialized against. An
	// empty name passes data through unchanged.
	Response string

	// Status is the success status. Zero means 200.
	Status  int
	Handler HandlerFunc
}

func (rt Route) source() Source {
	if rt.From != SourceAuto {
		return rt.From
	}
	switch rt.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return SourceQuery
	default:
		return SourceBody
	}
}

func (rt Route) successStatus() int {
	if rt.Status == 0 {
		return http.StatusOK
	}
	return rt.Status
}

// Result is what a handler returns on success.
type Result struct {
	Data    any
	Message string
	// Status overrides Route.Status when non-zero.
	Status int
}

// OK wraps data in a Result.
func OK(data any) *Result {
	return &Result{Data: data}
}

// Call is the handler's view of a request.
type Call struct {
	// Input is the validated request value, nil when the route declares no
	// request schema.
	Input any
	// Params are the validated URL parameters. Without a params schema every
	// parameter is present as a string.
	Params map[string]any
	// Claims are UNTRUSTED and must not gate authorization.
	Claims identity.UntrustedClaims
	// Request is the request context. Handlers may read it.
	Request *RequestContext
}

// Object returns Input as an object, or nil.
func (c *Call) Object() map[string]any {
	m, _ := c.Input.(map[string]any)
	return m
}

// Param returns a URL parameter as a string.
func (c *Call) Param(name string) string {
	s, _ := c.Params[name].(string)
	return s
}

// RequestContext is the per-request record. It is owned by the goroutine
// serving the request and is never shared.
type RequestContext struct {
	ID     string
	Method string
	Path   string
	Header http.Header
	// Body is the decoded JSON body before validation.
	Body   any
	Route  string
	Origin string
	Claims identity.UntrustedClaims
	Start  time.Time
	State  State
}

func (rc *RequestContext) advance(to State) {
	rc.State = to
}
