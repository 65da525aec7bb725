// Package process supervises a single interactive child process.
//
// Supervisor owns at most one child at a time:
//   - Start spawns the configured command with piped stdin, stdout and stderr
//   - Stop force-kills the child's process group and forgets it
//   - SendCommand writes one line to the child's stdin and flushes it
//   - Status reports the recorded PID and start time
//
// Each output stream is read by a LineStreamer that publishes one
// events.ProcessLogEvent per line. A reaper waits for the child so that a
// process which exits on its own is announced and cleared from the handle.
//
// Example usage:
//
//	cmd, _ := process.NewCommand("java", "-Xmx2G -jar server.jar nogui", "/srv/mc")
//	sup := process.NewSupervisor(process.Options{
//	    Command:     cmd,
//	    Broadcaster: bus,
//	})
//	res, err := sup.Start(ctx)
//	_ = sup.SendCommand(ctx, "say hello")
//	_, _ = sup.Stop(ctx)
package process
