package registration

import (
	"github.com/tjfontaine/coursegate/internal/learning"
	"github.com/tjfontaine/coursegate/internal/plugin"
	"github.com/tjfontaine/coursegate/internal/plugins"
)

// RegisterBuiltins registers the built-in plugins explicitly. This replaces
// directory scanning and init-based side effects and is called by
// runtime.App and tests before the loader resolves.
func RegisterBuiltins(loader *plugin.Loader, version string) error {
	if err := RegisterInfrastructureBuiltins(loader); err != nil {
		return err
	}
	return RegisterRouteBuiltins(loader, version)
}

// RegisterInfrastructureBuiltins registers the event sinks, CORS, identity
// and the routes barrier.
func RegisterInfrastructureBuiltins(loader *plugin.Loader) error {
	return register(loader,
		plugins.LifecycleLogPlugin(),
		plugins.TracingPlugin(),
		plugins.EventStorePlugin(),
		plugins.CORSPlugin(),
		plugins.IdentityPlugin(),
		plugins.RoutesPlugin(),
	)
}

// RegisterRouteBuiltins registers the example routes, metrics and docs.
func RegisterRouteBuiltins(loader *plugin.Loader, version string) error {
	catalog := learning.NewCatalog(learning.SeedCourses())
	return register(loader,
		plugins.CoursesPlugin(catalog),
		plugins.CartPlugin(catalog),
		plugins.MetricsPlugin(),
		plugins.DocsPlugin(version),
	)
}

func register(loader *plugin.Loader, descriptors ...plugin.Descriptor) error {
	for _, d := range descriptors {
		if err := loader.Register(d); err != nil {
			return err
		}
	}
	return nil
}
