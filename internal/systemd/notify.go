// Package systemd reports service state to systemd over the sd_notify
// protocol. Every call is a no-op when NOTIFY_SOCKET is unset, so the
// binary behaves the same outside a Type=notify unit.
package systemd

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/warden/internal/events"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
	notify func(state string) (bool, error)
}

// NewNotifier creates a notifier that writes to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

// Ready tells systemd that startup finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown began.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) {
	n.send("STATUS=" + text)
}

// TrackProcess mirrors child lifecycle transitions into the unit status line.
// The returned func stops tracking.
func (n *Notifier) TrackProcess(bus *events.Bus) func() {
	n.Status("child idle")
	return bus.Subscribe(func(ev events.ProcessStateEvent) {
		n.Status(statusLine(ev))
	})
}

func statusLine(ev events.ProcessStateEvent) string {
	switch {
	case ev.State == "running":
		return fmt.Sprintf("child running (PID %d)", ev.PID)
	case ev.ExitCode != nil:
		return fmt.Sprintf("child idle (PID %d exited with code %d)", ev.PID, *ev.ExitCode)
	case ev.Reason == "stopped":
		return fmt.Sprintf("child idle (PID %d stopped)", ev.PID)
	default:
		return "child idle"
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
