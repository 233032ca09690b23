// Package events fans lifecycle events out to the registered sinks.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/core/ports"
)

// ErrBusSealed is returned by Subscribe after Seal.
var ErrBusSealed = errors.New("event bus is sealed")

type subscriber struct {
	name string
	pub  ports.EventPublisher
}

// Bus implements ports.EventPublisher by delivering each event to every
// subscriber in subscription order. A failing sink is logged and never
// affects the caller or the other sinks.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   []subscriber
	sealed bool
	closed bool
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe adds a named sink. Names must be unique.
func (b *Bus) Subscribe(name string, pub ports.EventPublisher) error {
	if pub == nil {
		return fmt.Errorf("subscribe %q: nil publisher", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrBusSealed
	}
	for _, s := range b.subs {
		if s.name == name {
			return fmt.Errorf("subscriber %q already registered", name)
		}
	}
	b.subs = append(b.subs, subscriber{name: name, pub: pub})
	return nil
}

// Seal stops further subscriptions.
func (b *Bus) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// Subscribers returns the sink names in delivery order.
func (b *Bus) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.name
	}
	return names
}

// Publish delivers event to every sink. It always returns nil.
func (b *Bus) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	if event == nil {
		return nil
	}

	b.mu.RLock()
	subs := b.subs
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil
	}

	for _, s := range subs {
		b.deliver(ctx, s, event)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, s subscriber, event *domain.LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event sink panicked",
				slog.String("sink", s.name),
				slog.String("event", string(event.Type)),
				slog.Any("panic", r),
			)
		}
	}()

	if err := s.pub.Publish(ctx, event); err != nil {
		b.logger.Warn("event sink failed",
			slog.String("sink", s.name),
			slog.String("event", string(event.Type)),
			slog.String("request_id", event.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes every sink in reverse subscription order and joins their
// errors. Events published after Close are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.mu.Unlock()

	var errs []error
	for i := len(subs) - 1; i >= 0; i-- {
		if err := subs[i].pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", subs[i].name, err))
		}
	}
	return errors.Join(errs...)
}
