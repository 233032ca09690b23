package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/core/ports"
	"github.com/tjfontaine/coursegate/internal/cors"
	"github.com/tjfontaine/coursegate/internal/identity"
	"github.com/tjfontaine/coursegate/internal/schema"
	"github.com/tjfontaine/coursegate/internal/server"
)

// ErrSealed is returned by Register and UseIdentity after Seal.
var ErrSealed = errors.New("pipeline is sealed")

// DefaultBodyLimit caps request bodies when no limit is configured.
const DefaultBodyLimit int64 = 1 << 20

const contentTypeJSON = "application/json; charset=utf-8"

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBodyLimit caps decoded request bodies at n bytes.
func WithBodyLimit(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.bodyLimit = n
		}
	}
}

// Pipeline wraps route handlers in the request state machine. Registration
// happens during startup; after Seal the pipeline is read-only and safe for
// concurrent requests.
type Pipeline struct {
	schemas   *schema.Registry
	events    ports.EventPublisher
	logger    *slog.Logger
	bodyLimit int64

	mu       sync.RWMutex
	identity *identity.Extractor
	routes   []Route
	sealed   bool

	// fallback is written when even the error envelope cannot be encoded.
	fallback []byte
}

// New creates a Pipeline. events may be nil, in which case nothing is
// published.
func New(schemas *schema.Registry, events ports.EventPublisher, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		schemas:   schemas,
		events:    events,
		logger:    logger,
		bodyLimit: DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.fallback, _ = json.Marshal(domain.NewErrorEnvelope(domain.ErrInternal(nil)))
	return p
}

// UseIdentity attaches the extractor consulted in AUTHENTICATED_CONTEXT.
// Without one, every request proceeds with absent claims.
func (p *Pipeline) UseIdentity(e *identity.Extractor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return ErrSealed
	}
	p.identity = e
	return nil
}

// Seal stops further registration.
func (p *Pipeline) Seal() {
	p.mu.Lock()
	p.sealed = true
	p.mu.Unlock()
}

// Routes returns the registered routes in registration order.
func (p *Pipeline) Routes() []Route {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Route, len(p.routes))
	for i, rt := range p.routes {
		rt.Tags = slices.Clone(rt.Tags)
		out[i] = rt
	}
	return out
}

type compiled struct {
	Route
	request  schema.Validator
	params   schema.Validator
	response schema.Serializer
}

// Register resolves the route's schemas and mounts it on r. An unknown
// schema name is returned as *schema.UnknownSchemaError.
func (p *Pipeline) Register(r chi.Router, rt Route) error {
	if rt.Method == "" || rt.Path == "" {
		return fmt.Errorf("route %q: method and path required", rt.Name)
	}
	if rt.Handler == nil {
		return fmt.Errorf("route %s %s: handler required", rt.Method, rt.Path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed {
		return ErrSealed
	}

	c := &compiled{Route: rt}
	if rt.Request != "" {
		s, err := p.schemas.Resolve(rt.Request)
		if err != nil {
			return fmt.Errorf("route %s %s: %w", rt.Method, rt.Path, err)
		}
		var opts []schema.Option
		if rt.source() == SourceQuery {
			opts = append(opts, schema.CoerceStrings())
		}
		c.request = schema.CompileValidator(s, opts...)
	}
	if rt.Params != "" {
		s, err := p.schemas.Resolve(rt.Params)
		if err != nil {
			return fmt.Errorf("route %s %s: %w", rt.Method, rt.Path, err)
		}
		c.params = schema.CompileValidator(s, schema.CoerceStrings())
	}
	if rt.Response != "" {
		s, err := p.schemas.Resolve(rt.Response)
		if err != nil {
			return fmt.Errorf("route %s %s: %w", rt.Method, rt.Path, err)
		}
		c.response = schema.CompileSerializer(s)
	}

	r.Method(rt.Method, rt.Path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p.serve(w, req, c)
	}))
	p.routes = append(p.routes, rt)
	return nil
}

// NotFound answers unmatched paths with the error envelope.
func (p *Pipeline) NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := p.arrive(r, "")
		p.fail(w, r, rc, domain.ErrNotFound(fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path)))
	}
}

// MethodNotAllowed answers a known path with an unsupported method.
func (p *Pipeline) MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := p.arrive(r, "")
		p.fail(w, r, rc, domain.NewAPIError(domain.ErrorCodeMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)))
	}
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, c *compiled) {
	rc := p.arrive(r, routePattern(r, c.Path))

	// CORS headers were applied by the cors middleware, which never blocks.
	if d, ok := cors.DecisionFromContext(r.Context()); ok {
		rc.Origin = d.Origin
	} else {
		rc.Origin = r.Header.Get(cors.HeaderOrigin)
	}
	rc.advance(StateCORSChecked)

	call := &Call{Request: rc}
	if err := p.validate(w, r, rc, c, call); err != nil {
		p.fail(w, r, rc, err)
		return
	}
	rc.advance(StateValidated)

	ctx := p.authenticate(r, rc, call)
	rc.advance(StateAuthenticatedContext)

	result, err := p.invoke(ctx, c, call)
	if err != nil {
		p.fail(w, r, rc, err)
		return
	}
	rc.advance(StateHandled)
	if result == nil {
		result = &Result{}
	}

	data := result.Data
	if c.response != nil {
		if data, err = c.response(result.Data); err != nil {
			p.fail(w, r, rc, err)
			return
		}
	}
	body, err := json.Marshal(domain.NewSuccessEnvelope(data, result.Message))
	if err != nil {
		p.fail(w, r, rc, fmt.Errorf("encode response: %w", err))
		return
	}
	rc.advance(StateSerialized)

	status := c.successStatus()
	if result.Status != 0 {
		status = result.Status
	}
	writeJSON(w, status, body)
	rc.advance(StateCompleted)

	p.publish(r.Context(), rc, domain.LifecycleEventResponseSent, domain.ResponseSentData{
		Method:   rc.Method,
		Route:    rc.Route,
		Status:   status,
		Duration: time.Since(rc.Start),
	})
}

func (p *Pipeline) arrive(r *http.Request, route string) *RequestContext {
	id := server.GetRequestID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}
	rc := &RequestContext{
		ID:     id,
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Route:  route,
		Start:  time.Now(),
		State:  StateArrived,
	}
	p.publish(r.Context(), rc, domain.LifecycleEventRequestReceived, domain.RequestReceivedData{
		Method:     rc.Method,
		Path:       rc.Path,
		Route:      rc.Route,
		RemoteAddr: r.RemoteAddr,
	})
	return rc
}

// validate checks URL params and the request value, collecting the issues of
// both before failing.
func (p *Pipeline) validate(w http.ResponseWriter, r *http.Request, rc *RequestContext, c *compiled, call *Call) error {
	var issues []schema.Issue
	collect := func(err error) error {
		var ve *schema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		issues = append(issues, ve.Issues...)
		return nil
	}

	params := urlParams(r)
	call.Params = params
	if c.params != nil {
		v, err := c.params(params)
		if err != nil {
			if err := collect(err); err != nil {
				return err
			}
		} else {
			call.Params, _ = v.(map[string]any)
		}
	}

	if c.request != nil {
		var raw any
		if c.source() == SourceQuery {
			raw = queryValues(r)
		} else {
			body, err := p.decodeBody(w, r)
			if err != nil {
				return withFieldIssues(err, issues)
			}
			rc.Body = body
			raw = body
		}

		v, err := c.request(raw)
		if err != nil {
			if err := collect(err); err != nil {
				return err
			}
		} else {
			call.Input = v
		}
	}

	if len(issues) > 0 {
		return &schema.ValidationError{Schema: c.Request, Issues: issues}
	}
	return nil
}

// withFieldIssues keeps parameter issues found before an unreadable body, so
// the caller still sees every offending field.
func withFieldIssues(err error, issues []schema.Issue) error {
	var apiErr *domain.APIError
	if len(issues) == 0 || !errors.As(err, &apiErr) {
		return err
	}
	return apiErr.WithDetails(map[string]any{"fields": issues})
}

func (p *Pipeline) decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.bodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewAPIError(domain.ErrorCodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, domain.ErrBadRequest("Unable to read request body").WithCause(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, domain.ErrBadRequest("Request body is not valid JSON").WithCause(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, domain.ErrBadRequest("Request body has trailing data")
	}
	return v, nil
}

func (p *Pipeline) authenticate(r *http.Request, rc *RequestContext, call *Call) context.Context {
	ctx := r.Context()

	p.mu.RLock()
	ext := p.identity
	p.mu.RUnlock()
	if ext == nil {
		return ctx
	}

	claims, ok := ext.Extract(r.Header.Get("Authorization"))
	if !ok {
		return ctx
	}
	rc.Claims = claims
	call.Claims = claims
	return identity.WithClaims(ctx, claims)
}

func (p *Pipeline) invoke(ctx context.Context, c *compiled, call *Call) (res *Result, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		p.logger.Error("handler panicked",
			slog.String("request_id", call.Request.ID),
			slog.String("route", call.Request.Route),
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())),
		)
		res, err = nil, fmt.Errorf("handler panic: %v", rec)
	}()
	return c.Handler(ctx, call)
}

// fail moves rc to ERRORED, writes the error envelope and publishes
// request.failed. Internal detail goes to the event, never to the client.
func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, rc *RequestContext, err error) {
	failedIn := rc.State
	rc.advance(StateErrored)

	apiErr := p.toAPIError(rc, err)
	status := apiErr.HTTPStatusCode()

	body, mErr := json.Marshal(domain.NewErrorEnvelope(apiErr))
	if mErr != nil {
		p.logger.Error("failed to encode error envelope",
			slog.String("request_id", rc.ID),
			slog.String("error", mErr.Error()),
		)
		status = http.StatusInternalServerError
		apiErr = domain.ErrInternal(mErr)
		body = p.fallback
	}
	writeJSON(w, status, body)

	p.publish(r.Context(), rc, domain.LifecycleEventRequestFailed, domain.RequestFailedData{
		Method:   rc.Method,
		Route:    rc.Route,
		State:    failedIn.String(),
		Status:   status,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Cause:    err.Error(),
		Duration: time.Since(rc.Start),
	})
}

func (p *Pipeline) toAPIError(rc *RequestContext, err error) *domain.APIError {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return validationError(ve)
	}

	var se *schema.SerializationError
	if errors.As(err, &se) {
		attrs := []any{
			slog.String("request_id", rc.ID),
			slog.String("route", rc.Route),
			slog.String("schema", se.Schema),
		}
		for _, is := range se.Issues {
			attrs = append(attrs, slog.Group("issue",
				slog.String("path", is.Path),
				slog.String("code", is.Code),
				slog.String("message", is.Message),
			))
		}
		p.logger.Error("response does not match its declared schema", attrs...)
		return domain.ErrInternal(err)
	}

	return domain.ToAPIError(err)
}

func validationError(ve *schema.ValidationError) *domain.APIError {
	var named []string
	for _, f := range ve.Fields() {
		if f != "" {
			named = append(named, f)
		}
	}
	msg := "Invalid request"
	if len(named) > 0 {
		msg = "Invalid request: " + strings.Join(named, ", ")
	}
	return domain.NewAPIError(domain.ErrorCodeValidation, msg).WithDetails(map[string]any{
		"fields": ve.Issues,
	})
}

func (p *Pipeline) publish(ctx context.Context, rc *RequestContext, typ domain.LifecycleEventType, data any) {
	if p.events == nil {
		return
	}
	event := &domain.LifecycleEvent{
		Type:      typ,
		RequestID: rc.ID,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish lifecycle event",
			slog.String("event", string(typ)),
			slog.String("request_id", rc.ID),
			slog.String("error", err.Error()),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func routePattern(r *http.Request, fallback string) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}

func urlParams(r *http.Request) map[string]any {
	params := map[string]any{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

// queryValues flattens the query string: a repeated key becomes a list.
func queryValues(r *http.Request) map[string]any {
	out := map[string]any{}
	for key, values := range r.URL.Query() {
		switch len(values) {
		case 0:
		case 1:
			out[key] = values[0]
		default:
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			out[key] = list
		}
	}
	return out
}
