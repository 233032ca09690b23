package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/pipeline"
	"github.com/tjfontaine/coursegate/internal/plugin"
	"github.com/tjfontaine/coursegate/internal/schema"
)

const openAPIPath = "/docs/openapi.json"

// DocsPlugin serves the OpenAPI description, per-contract JSON Schemas and
// a Swagger UI. Development only.
func DocsPlugin(version string) plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Docs,
		Dependencies: []string{Courses, Cart},
		Init: func(_ context.Context, host *plugin.Host) error {
			if !host.Config.IsDevelopment() {
				return nil
			}

			d := &docs{
				schemas:  host.Schemas,
				pipeline: host.Pipeline,
				logger:   host.Logger,
				version:  version,
			}
			host.Router.Get(openAPIPath, d.serveOpenAPI)
			host.Router.Get("/docs/schemas/{name}", d.serveSchema)
			host.Router.Get("/docs/ui/*", httpSwagger.Handler(httpSwagger.URL(openAPIPath)))

			host.Logger.Info("api docs enabled", slog.String("path", "/docs/ui/index.html"))
			return nil
		},
	}
}

type docs struct {
	schemas  *schema.Registry
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	version  string

	// The document is built on first request, after every plugin mounted
	// its routes.
	once sync.Once
	doc  []byte
	err  error
}

func (d *docs) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	d.once.Do(func() {
		d.doc, d.err = json.Marshal(BuildOpenAPI(d.pipeline.Routes(), d.schemas, d.version))
	})
	if d.err != nil {
		d.logger.Error("failed to encode openapi document", slog.String("error", d.err.Error()))
		writeError(w, domain.ErrInternal(d.err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(d.doc)
}

func (d *docs) serveSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Compiling proves the exported document is a valid JSON Schema.
	if _, err := d.schemas.CompileJSONSchema(name); err != nil {
		var unknown *schema.UnknownSchemaError
		if errors.As(err, &unknown) {
			writeError(w, domain.ErrNotFound("Schema not found"))
			return
		}
		d.logger.Error("exported schema does not compile",
			slog.String("schema", name),
			slog.String("error", err.Error()),
		)
		writeError(w, domain.ErrInternal(err))
		return
	}

	doc, err := d.schemas.JSONSchema(name)
	if err != nil {
		writeError(w, domain.ErrInternal(err))
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

func writeError(w http.ResponseWriter, apiErr *domain.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatusCode())
	json.NewEncoder(w).Encode(domain.NewErrorEnvelope(apiErr))
}

// BuildOpenAPI renders an OpenAPI 3.0 document for routes. Contracts are
// exported under components/schemas by registry name.
func BuildOpenAPI(routes []pipeline.Route, reg *schema.Registry, version string) map[string]any {
	components := make(map[string]any)
	paths := make(map[string]any)

	ref := func(name string) map[string]any {
		if _, ok := components[name]; !ok {
			if doc, err := reg.JSONSchema(name); err == nil {
				delete(doc, "$schema")
				components[name] = doc
			}
		}
		return map[string]any{"$ref": "#/components/schemas/" + name}
	}

	for _, rt := range routes {
		op := map[string]any{
			"operationId": rt.Name,
			"summary":     rt.Summary,
			"tags":        rt.Tags,
		}

		var params []any
		if rt.Params != "" {
			params = append(params, parameters(reg, rt.Params, "path")...)
		}

		if rt.Request != "" {
			if isQuery(rt) {
				params = append(params, parameters(reg, rt.Request, "query")...)
			} else {
				op["requestBody"] = map[string]any{
					"required": true,
					"content": map[string]any{
						"application/json": map[string]any{"schema": ref(rt.Request)},
					},
				}
			}
		}
		if len(params) > 0 {
			op["parameters"] = params
		}

		data := map[string]any{}
		if rt.Response != "" {
			data = ref(rt.Response)
		}
		status := rt.Status
		if status == 0 {
			status = http.StatusOK
		}
		op["responses"] = map[string]any{
			strconv.Itoa(status): map[string]any{
				"description": http.StatusText(status),
				"content": map[string]any{
					"application/json": map[string]any{"schema": successEnvelope(data)},
				},
			},
			"default": map[string]any{
				"description": "Error",
				"content": map[string]any{
					"application/json": map[string]any{"schema": map[string]any{"$ref": "#/components/schemas/ErrorEnvelope"}},
				},
			},
		}

		item, _ := paths[rt.Path].(map[string]any)
		if item == nil {
			item = make(map[string]any)
			paths[rt.Path] = item
		}
		item[strings.ToLower(rt.Method)] = op
	}

	components["ErrorEnvelope"] = errorEnvelope()

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "coursegate",
			"version": version,
		},
		"paths":      paths,
		"components": map[string]any{"schemas": components},
	}
}

func isQuery(rt pipeline.Route) bool {
	switch rt.From {
	case pipeline.SourceQuery:
		return true
	case pipeline.SourceBody:
		return false
	}
	return rt.Method == http.MethodGet || rt.Method == http.MethodHead || rt.Method == http.MethodDelete
}

// parameters expands an object contract into one parameter per field.
func parameters(reg *schema.Registry, name, in string) []any {
	doc, err := reg.JSONSchema(name)
	if err != nil {
		return nil
	}
	props, _ := doc["properties"].(map[string]any)
	required, _ := doc["required"].([]any)

	names := make([]string, 0, len(props))
	for field := range props {
		names = append(names, field)
	}
	slices.Sort(names)

	out := make([]any, 0, len(names))
	for _, field := range names {
		out = append(out, map[string]any{
			"name":     field,
			"in":       in,
			"required": in == "path" || slices.Contains(required, any(field)),
			"schema":   props[field],
		})
	}
	return out
}

func successEnvelope(data map[string]any) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean", "enum": []any{true}},
			"data":    data,
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"success", "data"},
	}
}

func errorEnvelope() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean", "enum": []any{false}},
			"error": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code":    map[string]any{"type": "string"},
					"message": map[string]any{"type": "string"},
					"details": map[string]any{"type": "object"},
				},
				"required": []any{"code", "message"},
			},
		},
		"required": []any{"success", "error"},
	}
}
