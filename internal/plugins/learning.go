package plugins

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/coursegate/internal/learning"
	"github.com/tjfontaine/coursegate/internal/pipeline"
	"github.com/tjfontaine/coursegate/internal/plugin"
)

// CoursesPlugin mounts the catalog routes over catalog.
func CoursesPlugin(catalog *learning.Catalog) plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Courses,
		Dependencies: []string{Routes},
		Init: func(_ context.Context, host *plugin.Host) error {
			if err := learning.RegisterSchemas(host.Schemas, learning.CourseSchemas...); err != nil {
				return err
			}
			return mount(host, Courses, learning.CourseRoutes(catalog))
		},
	}
}

// CartPlugin mounts the cart routes. Cart lines are priced from catalog.
func CartPlugin(catalog *learning.Catalog) plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Cart,
		Dependencies: []string{Routes},
		Init: func(_ context.Context, host *plugin.Host) error {
			if err := learning.RegisterSchemas(host.Schemas, learning.CartSchemas...); err != nil {
				return err
			}
			return mount(host, Cart, learning.CartRoutes(learning.NewCartStore(), catalog))
		},
	}
}

func mount(host *plugin.Host, name string, routes []pipeline.Route) error {
	for _, rt := range routes {
		if err := host.Pipeline.Register(host.Router, rt); err != nil {
			return err
		}
	}
	host.Logger.Debug("routes mounted", slog.String("plugin", name), slog.Int("count", len(routes)))
	return nil
}
