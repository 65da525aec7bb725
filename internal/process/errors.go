package process

// ErrorKind classifies supervisor failures so callers can map them to
// responses without string matching.
type ErrorKind string

// Error kinds.
const (
	KindSpawn          ErrorKind = "SPAWN_FAILED"
	KindAlreadyRunning ErrorKind = "ALREADY_RUNNING"
	KindEmptyCommand   ErrorKind = "EMPTY_COMMAND"
	KindNotRunning     ErrorKind = "NOT_RUNNING"
	KindTerminate      ErrorKind = "TERMINATE_FAILED"
	KindIO             ErrorKind = "IO_FAILED"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrSpawn          = &Error{Kind: KindSpawn}
	ErrAlreadyRunning = &Error{Kind: KindAlreadyRunning}
	ErrEmptyCommand   = &Error{Kind: KindEmptyCommand}
	ErrNotRunning     = &Error{Kind: KindNotRunning}
	ErrTerminate      = &Error{Kind: KindTerminate}
	ErrIO             = &Error{Kind: KindIO}
)

// Error is a supervisor failure. Message is written for humans and is what
// the API returns as the response body.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
