package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/warden/internal/events"
	"github.com/smazurov/warden/internal/logging"
	"github.com/smazurov/warden/internal/metrics"
)

// Caller-facing messages.
const (
	msgAlreadyStopped = "Server is already stopped or was never started."
	msgEmptyCommand   = "Command cannot be empty."
	msgNotRunning     = "Server process is not running or stdin is closed."
)

// Options configures a Supervisor.
type Options struct {
	Command     Command
	Broadcaster Broadcaster
	Killer      Killer       // defaults to SignalKiller
	Logger      *slog.Logger // defaults to the "process" module logger
}

// Supervisor owns the lifecycle of one child process. All methods are safe
// for concurrent use.
type Supervisor struct {
	handle handle

	// lifecycleMu serializes Start and Stop against each other so a failed
	// stop can always restore its PID. It is held across spawn and kill, so
	// even an idle Stop waits for an in-flight Start. SendCommand and Status
	// never take it.
	lifecycleMu sync.Mutex

	commandMu sync.RWMutex
	command   Command

	sink   Broadcaster
	killer Killer
	logger *slog.Logger
}

// NewSupervisor creates a Supervisor with nothing running.
func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		command: opts.Command,
		sink:    opts.Broadcaster,
		killer:  opts.Killer,
		logger:  opts.Logger,
	}
	if s.sink == nil {
		s.sink = discard{}
	}
	if s.killer == nil {
		s.killer = SignalKiller{}
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("process")
	}
	return s
}

// SetCommand replaces the command used by the next Start. A running child
// keeps the command it was started with.
func (s *Supervisor) SetCommand(cmd Command) {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	s.command = cmd
}

// GetCommand returns the command the next Start will use.
func (s *Supervisor) GetCommand() Command {
	s.commandMu.RLock()
	defer s.commandMu.RUnlock()
	return s.command
}

// Status returns a snapshot of the supervised child.
func (s *Supervisor) Status() Info {
	c := s.handle.snapshot()
	if c == nil {
		return Info{State: StateIdle, Command: s.GetCommand().String()}
	}
	return Info{
		State:     StateRunning,
		PID:       c.pid,
		StartedAt: c.startedAt,
		Command:   c.command,
	}
}

// Start spawns the configured command with all three standard streams piped.
// It fails with ErrAlreadyRunning while a child is recorded as running.
func (s *Supervisor) Start(ctx context.Context) (StartResult, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if cur := s.handle.snapshot(); cur != nil {
		metrics.RecordStart(metrics.ResultConflict)
		return StartResult{PID: cur.pid}, newError(KindAlreadyRunning,
			fmt.Sprintf("Server is already running (PID: %d).", cur.pid), nil)
	}

	spec := s.GetCommand()
	c, stdout, stderr, err := s.spawn(spec)
	if err != nil {
		s.handle.clearStdin()
		metrics.RecordStart(metrics.ResultFailure)
		s.logger.ErrorContext(ctx, "Error starting server", "error", err, "command", spec.String())
		return StartResult{}, newError(KindSpawn, "Error starting server", err)
	}

	s.handle.setStdin(c.stdin)
	s.handle.setCurrent(c)

	var streams sync.WaitGroup
	streams.Add(2)
	go func() {
		defer streams.Done()
		_, _ = NewLineStreamer(events.SourceStdout, false, s.sink, s.logger).Run(stdout)
	}()
	go func() {
		defer streams.Done()
		_, _ = NewLineStreamer(events.SourceStderr, true, s.sink, s.logger).Run(stderr)
	}()
	go s.reap(c, &streams)

	metrics.RecordStart(metrics.ResultSuccess)
	s.logger.InfoContext(ctx, "Server started", "pid", c.pid, "command", c.command)
	s.sink.Publish(events.ProcessStateEvent{
		State:     string(StateRunning),
		PID:       c.pid,
		Reason:    "started",
		Timestamp: now(),
	})

	return StartResult{PID: c.pid, Message: startedMessage(c.pid)}, nil
}

func (s *Supervisor) spawn(spec Command) (*child, io.ReadCloser, io.ReadCloser, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, nil, err
	}

	cmd := exec.Command(spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	c := &child{
		pid:       pid,
		cmd:       cmd,
		command:   spec.String(),
		startedAt: time.Now(),
		stdin:     newStdinPipe(stdin),
		done:      make(chan struct{}),
	}
	return c, stdout, stderr, nil
}

// reap waits for both streamers to drain and then for the child itself.
// A child that exits without a stop request is cleared from the handle and
// announced.
func (s *Supervisor) reap(c *child, streams *sync.WaitGroup) {
	streams.Wait()
	c.exitCode = exitCodeFromError(c.cmd.Wait())
	close(c.done)

	cleared := s.handle.clearCurrentIf(c)
	s.handle.clearStdinIf(c.stdin)

	if !cleared {
		s.logger.Debug("Reaped stopped child", "pid", c.pid, "exit_code", c.exitCode)
		return
	}

	s.logger.Info("Process exited", "pid", c.pid, "exit_code", c.exitCode)
	metrics.RecordExit()
	code := c.exitCode
	s.sink.Publish(events.ProcessLogEvent{
		Message:   fmt.Sprintf("Server process exited (PID: %d, exit code: %d)", c.pid, code),
		IsError:   code != 0,
		Source:    events.SourceSupervisor,
		Timestamp: now(),
	})
	s.sink.Publish(events.ProcessStateEvent{
		State:     string(StateIdle),
		PID:       c.pid,
		ExitCode:  &code,
		Reason:    "exited",
		Timestamp: now(),
	})
}

// Stop force-kills the running child. With nothing running it succeeds with
// AlreadyStopped set. When the kill fails the PID is kept so Stop can be
// retried, and stdin is left open.
func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	c := s.handle.takeCurrent()
	if c == nil {
		metrics.RecordStop(metrics.ResultNoop)
		s.logger.InfoContext(ctx, msgAlreadyStopped)
		return StopResult{AlreadyStopped: true, Message: msgAlreadyStopped}, nil
	}

	// A failed kill only counts when the child is still alive to be put back;
	// one that was reaped meanwhile is stopped.
	if err := s.killer.Kill(c.pid); err != nil {
		if s.handle.restoreCurrent(c) {
			msg := fmt.Sprintf("Failed to stop server (PID: %d)", c.pid)
			failure := newError(KindTerminate, msg, err)
			s.logger.ErrorContext(ctx, msg, "error", err)
			s.sink.Publish(events.ProcessLogEvent{
				Message:   failure.Error(),
				IsError:   true,
				Source:    events.SourceSupervisor,
				Timestamp: now(),
			})
			metrics.RecordStop(metrics.ResultFailure)
			return StopResult{PID: c.pid, Message: failure.Error()}, failure
		}
		s.logger.DebugContext(ctx, "Kill failed but the child already exited", "pid", c.pid, "error", err)
	}

	msg := fmt.Sprintf("Server stopped successfully. (PID: %d)", c.pid)
	s.logger.InfoContext(ctx, msg)
	s.sink.Publish(events.ProcessLogEvent{
		Message:   msg,
		Source:    events.SourceSupervisor,
		Timestamp: now(),
	})
	s.handle.clearStdinIf(c.stdin)
	metrics.RecordStop(metrics.ResultSuccess)
	s.sink.Publish(events.ProcessStateEvent{
		State:     string(StateIdle),
		PID:       c.pid,
		Reason:    "stopped",
		Timestamp: now(),
	})
	return StopResult{PID: c.pid, Message: msg}, nil
}

// SendCommand writes command and a newline to the child's stdin. The command
// is echoed to the broadcaster before it is written. Concurrent calls never
// interleave their bytes.
func (s *Supervisor) SendCommand(ctx context.Context, command string) error {
	text := strings.TrimSpace(command)
	if text == "" {
		metrics.RecordCommand(metrics.ResultInvalid)
		return newError(KindEmptyCommand, msgEmptyCommand, nil)
	}

	s.handle.stdinMu.Lock()
	defer s.handle.stdinMu.Unlock()

	pipe := s.handle.stdin
	if pipe == nil {
		s.sink.Publish(events.ProcessLogEvent{
			Message:   msgNotRunning,
			IsError:   true,
			Source:    events.SourceSupervisor,
			Timestamp: now(),
		})
		metrics.RecordCommand(metrics.ResultConflict)
		return newError(KindNotRunning, msgNotRunning, nil)
	}

	s.sink.Publish(events.ProcessLogEvent{
		Message:   text,
		Source:    events.SourceCommand,
		Timestamp: now(),
	})

	if err := pipe.writeLine(text); err != nil {
		metrics.RecordCommand(metrics.ResultFailure)
		s.logger.ErrorContext(ctx, "Failed to send command", "error", err)
		return err
	}

	metrics.RecordCommand(metrics.ResultSuccess)
	s.logger.DebugContext(ctx, "Command sent", "command", text)
	return nil
}

// CommandSentMessage is the acknowledgement text for a delivered command.
func CommandSentMessage(command string) string {
	return fmt.Sprintf("Command '%s' sent.", strings.TrimSpace(command))
}

func startedMessage(pid int) string {
	if pid <= 0 {
		return "Server started (PID: no pid)"
	}
	return fmt.Sprintf("Server started (PID: %d)", pid)
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type discard struct{}

func (discard) Publish(events.Event) {}
