package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/smazurov/warden/internal/events"
	"github.com/smazurov/warden/internal/metrics"
)

// ErrPrefix marks error lines on the WebSocket log feed.
const ErrPrefix = "[ERR]: "

const wsWriteTimeout = 5 * time.Second

// formatLogLine renders a log event as one text frame.
func formatLogLine(ev events.ProcessLogEvent) string {
	if ev.IsError {
		return ErrPrefix + ev.Message
	}
	return ev.Message
}

// handleLogSocket streams log lines to a WebSocket client as plain-text
// frames. Frames from the client are ignored.
func (s *Server) handleLogSocket(w http.ResponseWriter, r *http.Request) {
	if s.authRequired() {
		if reason := s.checkCredentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth")); reason != "" {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, reason, http.StatusUnauthorized)
			return
		}
	}

	// Subscribe before the handshake completes so the client sees every
	// line published after its dial returns.
	eventCh := make(chan any, s.subscriberBuffer())
	unsubscribe := events.SubscribeToChannel[events.ProcessLogEvent](s.eventBus, eventCh, "websocket")
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: s.corsConfig.AllowOrigin == "*",
	})
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	defer metrics.ViewerConnected("websocket")()

	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("Log viewer connected", "transport", "websocket", "remote_addr", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Log viewer disconnected", "transport", "websocket", "remote_addr", r.RemoteAddr)
			return
		case ev := <-eventCh:
			line, ok := ev.(events.ProcessLogEvent)
			if !ok {
				continue
			}
			if err := s.writeFrame(ctx, conn, formatLogLine(line)); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("WebSocket write failed", "error", err)
				}
				return
			}
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(text))
}
