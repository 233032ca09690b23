package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/coursegate/internal/pkg/config"
)

func testConfig() config.CORSConfig {
	return config.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

func newPolicy(t *testing.T, cfg config.CORSConfig) *Policy {
	t.Helper()
	p, err := NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	return p
}

func TestEvaluate(t *testing.T) {
	p := newPolicy(t, testConfig())

	tests := []struct {
		name        string
		method      string
		headers     map[string]string
		wantKind    Kind
		wantAllowed bool
		wantHeaders map[string]string
		absent      []string
	}{
		{
			name:        "allowed actual request",
			method:      http.MethodGet,
			headers:     map[string]string{"Origin": "http://localhost:3000"},
			wantKind:    KindActual,
			wantAllowed: true,
			wantHeaders: map[string]string{
				HeaderAllowOrigin:      "http://localhost:3000",
				HeaderAllowCredentials: "true",
				HeaderExposeHeaders:    "X-Request-ID",
				"Vary":                 "Origin",
			},
			absent: []string{HeaderAllowMethods, HeaderMaxAge},
		},
		{
			name:     "disallowed origin",
			method:   http.MethodGet,
			headers:  map[string]string{"Origin": "https://evil.example.com"},
			wantKind: KindActual,
			wantHeaders: map[string]string{
				"Vary": "Origin",
			},
			absent: []string{HeaderAllowOrigin, HeaderAllowCredentials},
		},
		{
			name:     "origin match is case sensitive",
			method:   http.MethodGet,
			headers:  map[string]string{"Origin": "HTTP://LOCALHOST:3000"},
			wantKind: KindActual,
			absent:   []string{HeaderAllowOrigin},
		},
		{
			name:     "no origin",
			method:   http.MethodGet,
			wantKind: KindActual,
			absent:   []string{HeaderAllowOrigin},
		},
		{
			name:   "allowed preflight",
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":            "http://localhost:5173",
				HeaderRequestMethod: "POST",
			},
			wantKind:    KindPreflight,
			wantAllowed: true,
			wantHeaders: map[string]string{
				HeaderAllowOrigin:  "http://localhost:5173",
				HeaderAllowMethods: "GET, POST, OPTIONS",
				HeaderAllowHeaders: "Content-Type, Authorization",
				HeaderMaxAge:       "600",
			},
			absent: []string{HeaderExposeHeaders},
		},
		{
			name:   "preflight with disallowed method",
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":            "http://localhost:5173",
				HeaderRequestMethod: "DELETE",
			},
			wantKind: KindPreflight,
			wantHeaders: map[string]string{
				"Vary": "Origin",
			},
			absent: []string{HeaderAllowOrigin, HeaderAllowMethods},
		},
		{
			name:     "options without request method is actual",
			method:   http.MethodOptions,
			headers:  map[string]string{"Origin": "http://localhost:3000"},
			wantKind: KindActual,
			wantHeaders: map[string]string{
				HeaderAllowOrigin: "http://localhost:3000",
			},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			d := p.Evaluate(tt.method, h)

			if d.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", d.Kind, tt.wantKind)
			}
			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllowed)
			}
			for k, want := range tt.wantHeaders {
				if got := d.Headers.Get(k); got != want {
					t.Errorf("header %s = %q, want %q", k, got, want)
				}
			}
			for _, k := range tt.absent {
				if got := d.Headers.Get(k); got != "" {
					t.Errorf("header %s = %q, want absent", k, got)
				}
			}
		})
	}
}

func TestEvaluate_WithoutCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.AllowCredentials = false
	p := newPolicy(t, cfg)

	h := http.Header{}
	h.Set("Origin", "http://localhost:3000")
	d := p.Evaluate(http.MethodGet, h)

	if got := d.Headers.Get(HeaderAllowOrigin); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := d.Headers.Get(HeaderAllowCredentials); got != "" {
		t.Errorf("Allow-Credentials = %q, want absent", got)
	}
	if got := d.Headers.Get("Vary"); got != "" {
		t.Errorf("Vary = %q, want absent for wildcard origin", got)
	}
}

func TestEvaluate_EchoesRequestedHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedHeaders = nil
	p := newPolicy(t, cfg)

	h := http.Header{}
	h.Set("Origin", "http://localhost:3000")
	h.Set(HeaderRequestMethod, "POST")
	h.Set(HeaderRequestHeaders, "X-Custom, Content-Type")
	d := p.Evaluate(http.MethodOptions, h)

	if got := d.Headers.Get(HeaderAllowHeaders); got != "X-Custom, Content-Type" {
		t.Errorf("Allow-Headers = %q", got)
	}
}

func TestNewPolicy(t *testing.T) {
	t.Run("negative max age", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxAge = -1
		if _, err := NewPolicy(cfg); err == nil {
			t.Error("NewPolicy() error = nil, want error")
		}
	})

	t.Run("zero max age defaults to a day", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxAge = 0
		p := newPolicy(t, cfg)

		h := http.Header{}
		h.Set("Origin", "http://localhost:3000")
		h.Set(HeaderRequestMethod, "GET")
		if got := p.Evaluate(http.MethodOptions, h).Headers.Get(HeaderMaxAge); got != "86400" {
			t.Errorf("Max-Age = %q, want 86400", got)
		}
	})

	t.Run("allow-list is copied", func(t *testing.T) {
		cfg := testConfig()
		p := newPolicy(t, cfg)
		cfg.AllowedOrigins[0] = "https://mutated.example.com"

		if !p.AllowsOrigin("http://localhost:3000") {
			t.Error("policy observed caller mutation of allow-list")
		}
	})
}

func TestMiddleware(t *testing.T) {
	p := newPolicy(t, testConfig())

	t.Run("preflight short-circuits", func(t *testing.T) {
		for _, origin := range []string{"http://localhost:3000", "https://evil.example.com"} {
			called := false
			handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/courses", nil)
			req.Header.Set("Origin", origin)
			req.Header.Set(HeaderRequestMethod, "GET")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("%s: status = %d, want 204", origin, rec.Code)
			}
			if called {
				t.Errorf("%s: handler invoked for preflight", origin)
			}
		}
	})

	t.Run("actual request proceeds with decision", func(t *testing.T) {
		var got Decision
		var ok bool
		handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok = DecisionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get(HeaderAllowOrigin) != "" {
			t.Error("Allow-Origin set for disallowed origin")
		}
		if rec.Header().Get("Vary") != "Origin" {
			t.Errorf("Vary = %q, want Origin on refused response", rec.Header().Get("Vary"))
		}
		if !ok || got.Allowed || got.Origin != "https://evil.example.com" {
			t.Errorf("DecisionFromContext() = %+v, %v", got, ok)
		}
	})
}
