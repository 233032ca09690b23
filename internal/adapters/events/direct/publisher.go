// Package direct provides an event publisher that writes to the event store.
package direct

import (
	"context"
	"fmt"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/core/ports"
)

// Publisher implements ports.EventPublisher by appending each event to a
// ports.EventStore synchronously.
type Publisher struct {
	store ports.EventStore
}

func NewPublisher(store ports.EventStore) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	return &Publisher{store: store}, nil
}

func (p *Publisher) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	// The response may already be written; a cancelled request context must
	// not drop the record.
	return p.store.AppendLifecycleEvent(context.WithoutCancel(ctx), event)
}

// Close closes the underlying store.
func (p *Publisher) Close() error {
	return p.store.Close()
}
