// Package cors decides, per request, which cross-origin headers the server
// emits.
//
// The policy never rejects a request server-side. A request from an origin
// outside the allow-list proceeds without CORS headers and the browser
// enforces the rejection; non-browser clients are unaffected.
package cors

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/tjfontaine/coursegate/internal/pkg/config"
)

const (
	HeaderOrigin           = "Origin"
	HeaderRequestMethod    = "Access-Control-Request-Method"
	HeaderRequestHeaders   = "Access-Control-Request-Headers"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
	headerVary             = "Vary"
	defaultMaxAgeSeconds   = 86400
	wildcard               = "*"
)

// Kind classifies a request for CORS purposes.
type Kind int

const (
	// KindActual is any request that is not a preflight, simple or otherwise.
	KindActual Kind = iota
	// KindPreflight is an OPTIONS request carrying Access-Control-Request-Method.
	KindPreflight
)

func (k Kind) String() string {
	if k == KindPreflight {
		return "preflight"
	}
	return "actual"
}

// Policy is the process-wide CORS policy. It is built once at startup and
// never mutated.
type Policy struct {
	origins          []string
	methods          []string
	allowHeaders     []string
	exposeHeaders    []string
	allowCredentials bool
	maxAge           int
}

// NewPolicy builds a Policy from configuration. The allow-list keeps its
// configured order and is matched exactly, case-sensitively.
func NewPolicy(cfg config.CORSConfig) (*Policy, error) {
	if cfg.MaxAge < 0 {
		return nil, fmt.Errorf("cors: negative max age %d", cfg.MaxAge)
	}

	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = defaultMaxAgeSeconds
	}

	methods := make([]string, 0, len(cfg.AllowedMethods))
	for _, m := range cfg.AllowedMethods {
		methods = append(methods, strings.ToUpper(strings.TrimSpace(m)))
	}

	return &Policy{
		origins:          slices.Clone(cfg.AllowedOrigins),
		methods:          methods,
		allowHeaders:     slices.Clone(cfg.AllowedHeaders),
		exposeHeaders:    slices.Clone(cfg.ExposedHeaders),
		allowCredentials: cfg.AllowCredentials,
		maxAge:           maxAge,
	}, nil
}

// Origins returns a copy of the allow-list.
func (p *Policy) Origins() []string {
	return slices.Clone(p.origins)
}

// AllowsOrigin reports whether origin is on the allow-list.
func (p *Policy) AllowsOrigin(origin string) bool {
	return origin != "" && slices.Contains(p.origins, origin)
}

// Decision is the outcome of evaluating one request.
type Decision struct {
	Kind Kind
	// Origin is the request Origin header, empty when absent.
	Origin string
	// Allowed reports whether CORS headers are emitted.
	Allowed bool
	// Headers are the response headers to emit. When not Allowed they carry
	// at most Vary.
	Headers http.Header
}

// Evaluate classifies the request and computes the headers to emit.
func (p *Policy) Evaluate(method string, h http.Header) Decision {
	d := Decision{Kind: KindActual, Origin: h.Get(HeaderOrigin), Headers: http.Header{}}

	// Echoed origins make every response origin-dependent, refused ones too.
	if p.allowCredentials {
		d.Headers.Add(headerVary, HeaderOrigin)
	}

	requestedMethod := h.Get(HeaderRequestMethod)
	if method == http.MethodOptions && requestedMethod != "" {
		d.Kind = KindPreflight
	}

	if !p.AllowsOrigin(d.Origin) {
		return d
	}
	if d.Kind == KindPreflight && !p.allowsMethod(requestedMethod) {
		return d
	}

	d.Allowed = true
	p.originHeaders(d.Headers, d.Origin)

	if d.Kind == KindPreflight {
		d.Headers.Set(HeaderAllowMethods, strings.Join(p.methods, ", "))
		if len(p.allowHeaders) > 0 {
			d.Headers.Set(HeaderAllowHeaders, strings.Join(p.allowHeaders, ", "))
		} else if requested := h.Get(HeaderRequestHeaders); requested != "" {
			d.Headers.Set(HeaderAllowHeaders, requested)
			d.Headers.Add(headerVary, HeaderRequestHeaders)
		}
		d.Headers.Set(HeaderMaxAge, strconv.Itoa(p.maxAge))
		return d
	}

	if len(p.exposeHeaders) > 0 {
		d.Headers.Set(HeaderExposeHeaders, strings.Join(p.exposeHeaders, ", "))
	}
	return d
}

func (p *Policy) originHeaders(h http.Header, origin string) {
	// With credentials the browser rejects a wildcard, so the origin is echoed.
	if p.allowCredentials {
		h.Set(HeaderAllowOrigin, origin)
		h.Set(HeaderAllowCredentials, "true")
		return
	}
	h.Set(HeaderAllowOrigin, wildcard)
}

func (p *Policy) allowsMethod(method string) bool {
	if len(p.methods) == 0 {
		return true
	}
	return slices.Contains(p.methods, strings.ToUpper(method))
}

// Apply copies the decision's headers onto w.
func (d Decision) Apply(w http.Header) {
	for key, values := range d.Headers {
		for _, v := range values {
			w.Add(key, v)
		}
	}
}

type decisionKey struct{}

// WithDecision stores d in ctx.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext returns the decision recorded by Middleware, if any.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}

// Middleware emits CORS headers for every request. Preflight requests are
// answered with 204 and never reach the next handler, whether or not the
// origin is allowed.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := p.Evaluate(r.Method, r.Header)
		d.Apply(w.Header())

		if d.Kind == KindPreflight {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), d)))
	})
}
