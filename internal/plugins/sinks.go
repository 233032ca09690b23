package plugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/coursegate/internal/adapters/events/direct"
	eventlogger "github.com/tjfontaine/coursegate/internal/adapters/events/logger"
	"github.com/tjfontaine/coursegate/internal/adapters/events/tracing"
	"github.com/tjfontaine/coursegate/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/coursegate/internal/plugin"
)

// LifecycleLogPlugin logs one line per lifecycle event.
func LifecycleLogPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name: LifecycleLog,
		Init: func(_ context.Context, host *plugin.Host) error {
			return host.Events.Subscribe(LifecycleLog, eventlogger.NewPublisher(host.Logger))
		},
	}
}

// TracingPlugin records lifecycle events on the active span. It does nothing
// unless tracing is enabled.
func TracingPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name: Tracing,
		Init: func(_ context.Context, host *plugin.Host) error {
			if !host.Config.Telemetry.Tracing {
				return nil
			}
			return host.Events.Subscribe(Tracing, tracing.NewPublisher())
		},
	}
}

// EventStorePlugin persists lifecycle events to SQLite when
// storage.events_path is set.
func EventStorePlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name:         EventStore,
		Dependencies: []string{LifecycleLog},
		Init: func(_ context.Context, host *plugin.Host) error {
			path := host.Config.Storage.EventsPath
			if path == "" {
				host.Logger.Debug("lifecycle event store disabled")
				return nil
			}

			store, err := sqlite.New(path)
			if err != nil {
				return fmt.Errorf("open event store: %w", err)
			}
			pub, err := direct.NewPublisher(store)
			if err != nil {
				store.Close()
				return err
			}
			if err := host.Events.Subscribe(EventStore, pub); err != nil {
				pub.Close()
				return err
			}

			host.Logger.Info("lifecycle event store opened", slog.String("path", path))
			return nil
		},
	}
}
