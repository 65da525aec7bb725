// Package logging provides structured logging with per-module log level configuration.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output goes to stdout (text or json) when stdout is usable and to the
// systemd journal when journald is listening; both when both are available.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"process": "debug",
//			"api":     "warn",
//		},
//	})
//
// Then per module:
//
//	logger := logging.GetLogger("process")
//	logger.Info("Process started", "pid", pid)
//
// Loggers obtained before Initialize are cached and pick up the configured
// level afterwards, so package-level loggers are safe.
//
// Viewing journal output:
//
//	journalctl -t warden -f
//	journalctl -t warden MODULE=process
package logging
