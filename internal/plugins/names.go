// Package plugins holds the built-in plugins. Each constructor returns a
// plugin.Descriptor; internal/registration decides which ones are loaded.
package plugins

// Built-in plugin names.
const (
	LifecycleLog = "lifecycle-log"
	Tracing      = "tracing"
	EventStore   = "event-store"
	CORS         = "cors"
	Identity     = "identity"
	Routes       = "routes"
	Courses      = "courses"
	Cart         = "cart"
	Metrics      = "metrics"
	Docs         = "docs"
)
