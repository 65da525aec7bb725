// Package metrics provides Prometheus metrics for the supervised child process
// and the log fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultConflict = "conflict"
	ResultNoop     = "noop"
	ResultInvalid  = "invalid"
)

var (
	processStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "process",
		Name:      "starts_total",
		Help:      "Start attempts by result",
	}, []string{"result"})

	processStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "process",
		Name:      "stops_total",
		Help:      "Stop attempts by result",
	}, []string{"result"})

	processRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "warden",
		Subsystem: "process",
		Name:      "running",
		Help:      "1 while a child process is recorded as running",
	})

	processExits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "process",
		Name:      "exits_total",
		Help:      "Child processes that exited without a stop request",
	})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Name:      "commands_total",
		Help:      "Commands forwarded to the child's stdin by result",
	}, []string{"result"})

	outputLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Name:      "output_lines_total",
		Help:      "Lines read from the child's output streams",
	}, []string{"source"})

	broadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "broadcast",
		Name:      "dropped_total",
		Help:      "Events dropped because a viewer's buffer was full",
	}, []string{"subscriber"})

	viewers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "warden",
		Subsystem: "broadcast",
		Name:      "viewers",
		Help:      "Connected log viewers",
	}, []string{"transport"})
)

// RecordStart counts a start attempt.
func RecordStart(result string) {
	processStarts.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		processRunning.Set(1)
	}
}

// RecordStop counts a stop attempt.
func RecordStop(result string) {
	processStops.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		processRunning.Set(0)
	}
}

// RecordExit counts a child that exited on its own.
func RecordExit() {
	processExits.Inc()
	processRunning.Set(0)
}

// RecordCommand counts a send-command attempt.
func RecordCommand(result string) {
	commands.WithLabelValues(result).Inc()
}

// RecordOutputLine counts one line read from stdout or stderr.
func RecordOutputLine(source string) {
	outputLines.WithLabelValues(source).Inc()
}

// RecordDropped counts an event a subscriber could not take.
func RecordDropped(subscriber string) {
	broadcastDropped.WithLabelValues(subscriber).Inc()
}

// ViewerConnected tracks a viewer for its lifetime; call the returned func on disconnect.
func ViewerConnected(transport string) func() {
	g := viewers.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}
