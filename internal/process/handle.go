package process

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"time"
)

// child is one spawned process. Fields other than exitCode are immutable
// after spawn; exitCode is written once before done is closed.
type child struct {
	pid       int
	cmd       *exec.Cmd
	command   string
	startedAt time.Time
	stdin     *stdinPipe
	done      chan struct{}
	exitCode  int
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// stdinPipe is the buffered write side of a child's stdin.
type stdinPipe struct {
	w *bufio.Writer
	c io.WriteCloser
}

func newStdinPipe(wc io.WriteCloser) *stdinPipe {
	return &stdinPipe{w: bufio.NewWriter(wc), c: wc}
}

// writeLine writes line and a newline and flushes. A failed write discards
// whatever was buffered so the next call starts clean instead of repeating
// the sticky bufio error.
func (p *stdinPipe) writeLine(line string) error {
	if _, err := p.w.WriteString(line + "\n"); err != nil {
		p.w.Reset(p.c)
		return newError(KindIO, "Failed to write to stdin", err)
	}
	if err := p.w.Flush(); err != nil {
		p.w.Reset(p.c)
		return newError(KindIO, "Failed to flush stdin", err)
	}
	return nil
}

// handle is the record of the currently supervised child.
//
// The two slots have independent locks. pidMu guards only quick
// read/clear/restore operations; stdinMu is held across a write+flush pair.
// When both are needed the order is pidMu then stdinMu, and the current code
// never holds them at the same time.
type handle struct {
	pidMu   sync.Mutex
	current *child

	stdinMu sync.Mutex
	stdin   *stdinPipe
}

func (h *handle) snapshot() *child {
	h.pidMu.Lock()
	defer h.pidMu.Unlock()
	return h.current
}

func (h *handle) setCurrent(c *child) {
	h.pidMu.Lock()
	h.current = c
	h.pidMu.Unlock()
}

// takeCurrent reads and clears the pid slot in one step.
func (h *handle) takeCurrent() *child {
	h.pidMu.Lock()
	defer h.pidMu.Unlock()
	c := h.current
	h.current = nil
	return c
}

// restoreCurrent puts c back after a failed stop. It is a no-op when the slot
// was refilled or the child has since been reaped.
func (h *handle) restoreCurrent(c *child) bool {
	h.pidMu.Lock()
	defer h.pidMu.Unlock()
	if h.current != nil || c.exited() {
		return false
	}
	h.current = c
	return true
}

// clearCurrentIf empties the pid slot only when it still refers to c.
func (h *handle) clearCurrentIf(c *child) bool {
	h.pidMu.Lock()
	defer h.pidMu.Unlock()
	if h.current != c {
		return false
	}
	h.current = nil
	return true
}

func (h *handle) setStdin(p *stdinPipe) {
	h.stdinMu.Lock()
	h.stdin = p
	h.stdinMu.Unlock()
}

// clearStdin empties the stdin slot unconditionally.
func (h *handle) clearStdin() {
	h.stdinMu.Lock()
	p := h.stdin
	h.stdin = nil
	h.stdinMu.Unlock()
	if p != nil {
		_ = p.c.Close()
	}
}

// clearStdinIf empties the stdin slot only when it still holds p. p is
// closed either way; a replaced pipe belongs to a child that is gone.
func (h *handle) clearStdinIf(p *stdinPipe) {
	if p == nil {
		return
	}
	h.stdinMu.Lock()
	if h.stdin == p {
		h.stdin = nil
	}
	h.stdinMu.Unlock()
	_ = p.c.Close()
}
