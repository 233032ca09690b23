package plugins

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/tjfontaine/coursegate/internal/cors"
	"github.com/tjfontaine/coursegate/internal/identity"
	"github.com/tjfontaine/coursegate/internal/pipeline"
	"github.com/tjfontaine/coursegate/internal/plugin"
	"github.com/tjfontaine/coursegate/internal/schema"
)

// SchemaHealth is the /health response contract.
const SchemaHealth = "health.status"

// CORSPlugin installs the CORS policy in front of every route. It must
// initialize before any plugin mounts a route.
func CORSPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name: CORS,
		Init: func(_ context.Context, host *plugin.Host) error {
			policy, err := cors.NewPolicy(host.Config.CORS)
			if err != nil {
				return err
			}
			host.Router.Use(policy.Middleware)
			host.Logger.Info("cors policy installed",
				slog.Any("origins", policy.Origins()),
				slog.Bool("credentials", host.Config.CORS.AllowCredentials),
			)
			return nil
		},
	}
}

// IdentityPlugin decodes bearer tokens into untrusted claims.
func IdentityPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Identity,
		Dependencies: []string{CORS},
		Init: func(_ context.Context, host *plugin.Host) error {
			return host.Pipeline.UseIdentity(identity.NewExtractor(host.Logger))
		},
	}
}

// RoutesPlugin is the barrier every route plugin depends on. It mounts
// /health.
func RoutesPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Routes,
		Dependencies: []string{CORS, Identity, LifecycleLog},
		Init: func(_ context.Context, host *plugin.Host) error {
			_, err := host.Schemas.Register(SchemaHealth, schema.Object{Fields: []schema.Field{
				{Name: "status", Type: schema.Enum{Values: []string{"ok"}}},
				{Name: "environment", Type: schema.String{}},
				{Name: "uptimeSeconds", Type: schema.Number{Integer: true, Min: schema.Bound(0)}},
				{Name: "timestamp", Type: schema.String{MinLength: 1}},
			}})
			if err != nil {
				return err
			}

			started := time.Now()
			env := host.Config.Env
			return host.Pipeline.Register(host.Router, pipeline.Route{
				Method:   http.MethodGet,
				Path:     "/health",
				Name:     "health",
				Summary:  "Liveness check",
				Tags:     []string{"system"},
				Response: SchemaHealth,
				Handler: func(context.Context, *pipeline.Call) (*pipeline.Result, error) {
					return pipeline.OK(map[string]any{
						"status":        "ok",
						"environment":   env,
						"uptimeSeconds": int64(math.Floor(time.Since(started).Seconds())),
						"timestamp":     time.Now().UTC().Format(time.RFC3339),
					}), nil
				},
			})
		},
	}
}
