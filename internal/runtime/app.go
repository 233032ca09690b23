// Package runtime provides the App struct and lifecycle management for the
// course API server. An App can be embedded in tests or run standalone.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tjfontaine/coursegate/internal/events"
	"github.com/tjfontaine/coursegate/internal/pipeline"
	"github.com/tjfontaine/coursegate/internal/pkg/config"
	"github.com/tjfontaine/coursegate/internal/plugin"
	"github.com/tjfontaine/coursegate/internal/registration"
	"github.com/tjfontaine/coursegate/internal/schema"
	"github.com/tjfontaine/coursegate/internal/server"
)

// App wires the schema registry, event bus, request pipeline and plugins
// onto one HTTP server.
type App struct {
	// Dependencies (injected via options)
	cfg      *config.Config
	logger   *slog.Logger
	extra    []plugin.Descriptor
	builtins bool
	version  string

	// Built by Prepare
	schemas  *schema.Registry
	bus      *events.Bus
	pipeline *pipeline.Pipeline
	server   *server.Server
	loader   *plugin.Loader

	// Lifecycle management
	mu       sync.Mutex
	prepared bool
	started  bool
	serveErr chan error
}

// New creates an App with the given options. A configuration is required.
func New(opts ...Option) (*App, error) {
	app := &App{
		logger:   slog.Default(),
		builtins: true,
		version:  "dev",
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if app.cfg == nil {
		return nil, fmt.Errorf("config required (use WithConfig or WithConfigFile)")
	}
	return app, nil
}

// Prepare builds every component and initializes the plugins in dependency
// order. A cyclic or missing dependency, a schema conflict or a plugin init
// failure is returned here, before any port is opened. Afterwards the
// registry, bus and pipeline are sealed.
func (a *App) Prepare(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prepare(ctx)
}

func (a *App) prepare(ctx context.Context) error {
	if a.prepared {
		return nil
	}

	a.schemas = schema.NewRegistry()
	a.bus = events.NewBus(a.logger)
	a.pipeline = pipeline.New(a.schemas, a.bus, a.logger,
		pipeline.WithBodyLimit(a.cfg.Server.BodyLimit),
	)
	a.server = server.New(a.cfg, a.logger)
	a.loader = plugin.NewLoader()

	if err := a.registerPlugins(); err != nil {
		return err
	}

	host := &plugin.Host{
		Router:   a.server.Router,
		Config:   a.cfg,
		Logger:   a.logger,
		Schemas:  a.schemas,
		Pipeline: a.pipeline,
		Events:   a.bus,
	}
	if err := a.loader.InitAll(ctx, host); err != nil {
		// Sinks subscribed before the failure may hold open stores.
		if closeErr := a.bus.Close(); closeErr != nil {
			a.logger.Error("failed to close event sinks", slog.String("error", closeErr.Error()))
		}
		return fmt.Errorf("init plugins: %w", err)
	}

	a.server.Router.NotFound(a.pipeline.NotFound())
	a.server.Router.MethodNotAllowed(a.pipeline.MethodNotAllowed())

	a.schemas.Seal()
	a.bus.Seal()
	a.pipeline.Seal()
	a.prepared = true

	a.logger.Info("app prepared",
		slog.Any("plugins", a.loader.Names()),
		slog.Any("schemas", a.schemas.Names()),
		slog.Any("sinks", a.bus.Subscribers()),
		slog.Int("routes", len(a.pipeline.Routes())),
	)
	return nil
}

func (a *App) registerPlugins() error {
	if a.builtins {
		if err := registration.RegisterBuiltins(a.loader, a.version); err != nil {
			return fmt.Errorf("register builtins: %w", err)
		}
	}
	for _, d := range a.extra {
		if err := a.loader.Register(d); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}
	return nil
}

// Start prepares the app, binds the listener and serves in the background.
// Serve failures are reported on Errors.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("app already started")
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	if err := a.server.Listen(); err != nil {
		return err
	}

	a.serveErr = make(chan error, 1)
	go func() {
		a.serveErr <- a.server.Serve()
		close(a.serveErr)
	}()
	a.started = true

	a.logger.Info("coursegate started",
		slog.String("addr", a.server.Addr()),
		slog.String("env", a.cfg.Env),
	)
	return nil
}

// Errors delivers the result of the background Serve once it returns. It is
// nil before Start.
func (a *App) Errors() <-chan error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serveErr
}

// Shutdown stops the server, waits for in-flight requests, then closes every
// event sink.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.prepared {
		return nil
	}
	a.logger.Info("shutting down coursegate")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Error("failed to close event sinks", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("coursegate shutdown complete")
	return errors.Join(errs...)
}

// Handler returns the root HTTP handler. Prepare must have succeeded.
func (a *App) Handler() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return http.NotFoundHandler()
	}
	return a.server.Router
}

// Addr is the bound address after Start, the configured one before.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return a.cfg.Addr()
	}
	return a.server.Addr()
}

// Pipeline returns the request pipeline, nil before Prepare.
func (a *App) Pipeline() *pipeline.Pipeline {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pipeline
}
