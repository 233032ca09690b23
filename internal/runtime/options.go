package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/coursegate/internal/pkg/config"
	"github.com/tjfontaine/coursegate/internal/plugin"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		a.cfg = cfg
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file plus the environment.
// A missing file is not an error.
func WithConfigFile(path string) Option {
	return func(a *App) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithPlugins registers additional plugins after the built-ins.
func WithPlugins(descriptors ...plugin.Descriptor) Option {
	return func(a *App) error {
		a.extra = append(a.extra, descriptors...)
		return nil
	}
}

// WithoutBuiltins skips the built-in plugin set. Only plugins passed to
// WithPlugins are loaded.
func WithoutBuiltins() Option {
	return func(a *App) error {
		a.builtins = false
		return nil
	}
}

// WithVersion sets the version reported by the API docs.
func WithVersion(version string) Option {
	return func(a *App) error {
		a.version = version
		return nil
	}
}
