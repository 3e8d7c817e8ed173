// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Publish after Shutdown.
var ErrBusClosed = errors.New("event bus is shutting down")

// ErrBusFull is returned by Publish when the buffer cannot take another event.
var ErrBusFull = errors.New("event channel full")

type entry struct {
	id      string
	typ     EventType
	handler Handler
}

// Bus fans committed ledger events out to in-process subscribers: the event
// archive, the websocket hub and metrics.
//
// Queued events are delivered by a single goroutine, so every subscriber sees
// them in ledger order. Subscribers are called in subscription order.
type Bus struct {
	logger *zap.Logger

	subMu   sync.RWMutex
	entries []entry

	// queueMu guards queue against a send racing with close.
	queueMu sync.RWMutex
	closed  bool
	queue   chan Event
	done    chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	Capacity    int    `json:"capacity"`
	Pending     int    `json:"pending"`
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Failed      uint64 `json:"failed"`
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	b := &Bus{
		logger: logger.Named("event_bus"),
		queue:  make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go b.deliver()
	return b
}

// Subscribe registers a handler for a specific event type, or for every type
// with AllEvents.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	id := uuid.New().String()

	b.subMu.Lock()
	b.entries = append(b.entries, entry{id: id, typ: eventType, handler: handler})
	b.subMu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
	return &subscription{id: id, eventBus: b}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

func (b *Bus) unsubscribe(id string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			b.logger.Debug("Handler unsubscribed",
				zap.String("event_type", string(e.typ)),
				zap.String("subscription_id", id))
			return
		}
	}
}

// Publish queues an event for asynchronous delivery. It never blocks.
func (b *Bus) Publish(event Event) error {
	b.queueMu.RLock()
	defer b.queueMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.String("launch", event.LaunchID().String()))
		return ErrBusFull
	}
}

// PublishAll queues events in order and reports every event it had to drop.
func (b *Bus) PublishAll(evs []Event) error {
	var errs []error
	for _, e := range evs {
		if err := b.Publish(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// PublishSync delivers an event to all matching handlers before returning.
// Every handler runs even when an earlier one fails.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.subMu.RLock()
	matched := make([]entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.typ == AllEvents || e.typ == event.Type() {
			matched = append(matched, e)
		}
	}
	b.subMu.RUnlock()

	b.published.Add(1)

	var errs []error
	for _, e := range matched {
		if err := e.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", e.id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		b.failed.Add(1)
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

// deliver drains the queue until Shutdown closes it.
func (b *Bus) deliver() {
	defer close(b.done)
	for event := range b.queue {
		// ошибки уже залогированы в PublishSync
		_ = b.PublishSync(context.Background(), event)
	}
}

// Shutdown stops accepting events and waits until every queued event has been
// delivered or ctx expires.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.queueMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
		b.logger.Info("Shutting down event bus", zap.Int("pending", len(b.queue)))
	}
	b.queueMu.Unlock()

	select {
	case <-b.done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() Stats {
	b.subMu.RLock()
	subs := len(b.entries)
	b.subMu.RUnlock()

	return Stats{
		Capacity:    cap(b.queue),
		Pending:     len(b.queue),
		Subscribers: subs,
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Failed:      b.failed.Load(),
	}
}
