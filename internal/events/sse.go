package events

import (
	"github.com/kelindar/event"

	"github.com/smazurov/warden/internal/metrics"
)

// SubscribeToChannel bridges kelindar/event callback subscriptions to a channel,
// for viewers that forward events from a select loop (SSE, WebSocket).
//
// Delivery is drop-newest: when ch is full the event is discarded and counted
// under the subscriber label, so a slow viewer never backs up the bus.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any, subscriber string) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			metrics.RecordDropped(subscriber)
		}
	})
}
