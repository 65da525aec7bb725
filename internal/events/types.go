package events

// Event type constants for kelindar/event.
const (
	TypeProcessLog uint32 = iota + 1
	TypeProcessState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Output sources for ProcessLogEvent.
const (
	SourceStdout     = "stdout"
	SourceStderr     = "stderr"
	SourceSupervisor = "supervisor"
	SourceCommand    = "command"
)

// ProcessLogEvent is one line of child output, or a status line announced by
// the supervisor itself.
type ProcessLogEvent struct {
	Message   string `json:"message" example:"Done (3.2s)! For help, type \"help\"" doc:"One line of output without the trailing newline"`
	IsError   bool   `json:"is_error" example:"false" doc:"True for stderr lines and supervisor failures"`
	Source    string `json:"source" example:"stdout" enum:"stdout,stderr,supervisor,command" doc:"Where the line came from"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"When the line was read"`
}

// Type returns the event type identifier for ProcessLogEvent.
func (e ProcessLogEvent) Type() uint32 { return TypeProcessLog }

// ProcessStateEvent announces a lifecycle transition of the child.
type ProcessStateEvent struct {
	State     string `json:"state" example:"running" enum:"running,idle" doc:"New state"`
	PID       int    `json:"pid,omitempty" example:"4242" doc:"Process ID the transition refers to"`
	ExitCode  *int   `json:"exit_code,omitempty" example:"0" doc:"Exit code when the child exited on its own"`
	Reason    string `json:"reason" example:"started" enum:"started,stopped,exited,snapshot" doc:"What caused the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStateEvent.
func (e ProcessStateEvent) Type() uint32 { return TypeProcessState }
