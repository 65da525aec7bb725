package process

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/smazurov/warden/internal/events"
	"github.com/smazurov/warden/internal/metrics"
)

// Broadcaster receives events from the supervisor and its streamers.
// Publish must not block on subscribers.
type Broadcaster interface {
	Publish(ev events.Event)
}

// LineStreamer turns a byte stream into one ProcessLogEvent per line.
// The same type reads stdout and stderr; only the tag differs.
type LineStreamer struct {
	source  string
	isError bool
	sink    Broadcaster
	logger  *slog.Logger
}

// NewLineStreamer creates a streamer that tags every line with source and isError.
func NewLineStreamer(source string, isError bool, sink Broadcaster, logger *slog.Logger) *LineStreamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineStreamer{
		source:  source,
		isError: isError,
		sink:    sink,
		logger:  logger.With("source", source),
	}
}

// Run reads r until EOF or a read error and returns the number of lines
// forwarded. An unterminated final line is still forwarded. EOF is a clean
// end and returns a nil error.
func (s *LineStreamer) Run(r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	lines := 0
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			s.emit(line)
			lines++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			s.logger.Warn("Error reading stream", "error", err, "lines", lines)
			return lines, err
		}
	}
}

func (s *LineStreamer) emit(line string) {
	msg := strings.TrimRightFunc(strings.ToValidUTF8(line, "�"), unicode.IsSpace)
	metrics.RecordOutputLine(s.source)
	s.sink.Publish(events.ProcessLogEvent{
		Message:   msg,
		IsError:   s.isError,
		Source:    s.source,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
