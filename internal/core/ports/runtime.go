// Package ports defines the interfaces the request-processing core depends on.
package ports

import (
	"context"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

// EventPublisher publishes request lifecycle events.
// Implementations: structured log, Prometheus, SQLite, OpenTelemetry spans.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.LifecycleEvent) error
	Close() error
}

// EventStore persists lifecycle events.
// Implementations: SQLite (default).
type EventStore interface {
	AppendLifecycleEvent(ctx context.Context, event *domain.LifecycleEvent) error
	ListLifecycleEvents(ctx context.Context, requestID string) ([]*domain.LifecycleEvent, error)
	Close() error
}
