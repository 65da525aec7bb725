package process

import (
	"fmt"
	"syscall"
)

// Killer force-terminates a process by PID.
type Killer interface {
	Kill(pid int) error
}

// SignalKiller sends SIGKILL to the child's process group. Children are
// spawned with Setpgid, so the group ID equals the child's PID and any
// grandchildren go down with it.
type SignalKiller struct{}

// Kill sends SIGKILL to the process group led by pid.
func (SignalKiller) Kill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill -9 %d: %w", pid, err)
	}
	return nil
}

// KillerFunc adapts a function to Killer.
type KillerFunc func(pid int) error

// Kill calls f(pid).
func (f KillerFunc) Kill(pid int) error { return f(pid) }
