package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. The dispatcher queues each event per
// subscriber and delivers it from that subscriber's own goroutine, in publish
// order. The queues are bounded: Publish blocks once a subscriber falls 50000
// events behind. Every handler registered here is non-blocking (a channel send
// with a drop, or a quick status update), so in practice Publish does not wait.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Unknown event types are ignored.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ProcessLogEvent:
		event.Publish(b.dispatcher, e)
	case ProcessStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a typed handler, e.g. func(ProcessLogEvent).
// Returns an unsubscribe function; unrecognized handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ProcessLogEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProcessStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

