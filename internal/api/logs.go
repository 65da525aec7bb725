package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/warden/internal/events"
	"github.com/smazurov/warden/internal/metrics"
	"github.com/smazurov/warden/internal/process"
)

// registerLogRoutes registers the live log SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Live child output and lifecycle events via Server-Sent Events. The first event is a process-state snapshot; no history is replayed.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"process-log":   events.ProcessLogEvent{},
		"process-state": events.ProcessStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, s.subscriberBuffer())

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ProcessLogEvent](s.eventBus, eventCh, "sse"),
			events.SubscribeToChannel[events.ProcessStateEvent](s.eventBus, eventCh, "sse"),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()
		defer metrics.ViewerConnected("sse")()

		if err := send.Data(snapshotEvent(s.controller.Status())); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}

func snapshotEvent(info process.Info) events.ProcessStateEvent {
	return events.ProcessStateEvent{
		State:     string(info.State),
		PID:       info.PID,
		Reason:    "snapshot",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
