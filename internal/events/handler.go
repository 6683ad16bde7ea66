// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events of a specific type. Handle should not block.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	ID() string
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
