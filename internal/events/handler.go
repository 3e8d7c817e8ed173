// internal/events/handler.go
package events

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// Handler processes events of a specific type.
type Handler interface {
	// Handle processes an event. Should not block.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// ForLaunch wraps h so it only sees events of one launch.
func ForLaunch(launch domain.LaunchID, h Handler) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		if !event.LaunchID().Equals(launch) {
			return nil
		}
		return h.Handle(ctx, event)
	})
}

// Subscription represents a subscription to events.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	once     sync.Once
}

// Unsubscribe removes this subscription from the event bus. Safe to call twice.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.eventBus.unsubscribe(s.id) })
}
