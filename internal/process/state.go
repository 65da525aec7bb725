package process

import "time"

// State represents the current state of the supervised child.
type State string

// Process states. There are no transitional states: every operation finishes
// its handle mutation before returning.
const (
	StateIdle    State = "idle"    // Nothing recorded as running
	StateRunning State = "running" // A child was spawned and not yet stopped or reaped
)

// Info is a point-in-time snapshot of the supervisor.
type Info struct {
	State     State
	PID       int
	StartedAt time.Time
	Command   string
}

// StartResult is returned by a successful Start.
type StartResult struct {
	PID     int
	Message string
}

// StopResult is returned by Stop, on success and on failure.
type StopResult struct {
	PID            int
	AlreadyStopped bool
	Message        string
}
