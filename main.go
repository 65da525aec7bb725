package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/warden/cmd"
	"github.com/smazurov/warden/internal/api"
	"github.com/smazurov/warden/internal/config"
	"github.com/smazurov/warden/internal/events"
	"github.com/smazurov/warden/internal/logging"
	"github.com/smazurov/warden/internal/metrics/exporters"
	"github.com/smazurov/warden/internal/process"
	"github.com/smazurov/warden/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`
	FrontendDir string `help:"Directory with the built web console" default:"./front/dist" toml:"server.frontend_dir" env:"SERVER_FRONTEND_DIR"`

	// Child process settings
	ChildCommand    string `help:"Executable to supervise" default:"" toml:"child.command" env:"CHILD_COMMAND"`
	ChildArgs       string `help:"Arguments, split with shell-like quoting" default:"" toml:"child.args" env:"CHILD_ARGS"`
	ChildWorkingDir string `help:"Working directory of the child" default:"" toml:"child.working_dir" env:"CHILD_WORKING_DIR"`

	// Broadcast settings
	SubscriberBuffer int `help:"Per-viewer event buffer; overflow is dropped" default:"256" toml:"broadcast.subscriber_buffer" env:"BROADCAST_SUBSCRIBER_BUFFER"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password (empty disables auth)" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingProcess string `help:"Supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig  string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// loggingConfig starts from the whole [logging] table, so modules without a
// flag can still be tuned, then applies the resolved option values.
func loggingConfig(opts *Options) logging.Config {
	cfg := config.LoadLoggingConfig(opts.Config)
	cfg.Level = opts.LoggingLevel
	cfg.Format = opts.LoggingFormat
	cfg.Modules["process"] = opts.LoggingProcess
	cfg.Modules["api"] = opts.LoggingAPI
	cfg.Modules["http"] = opts.LoggingAPI
	cfg.Modules["config"] = opts.LoggingConfig
	return cfg
}

func childCommand(opts *Options) (process.Command, error) {
	return process.NewCommand(opts.ChildCommand, opts.ChildArgs, opts.ChildWorkingDir)
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(loggingConfig(opts))
		logger := logging.GetLogger("main")

		// The bus is the broadcaster: every viewer subscribes to it and the
		// supervisor publishes into it.
		eventBus := events.New()

		child, err := childCommand(opts)
		if err != nil {
			logger.Warn("Child command is not usable yet, start will fail until it is fixed", "error", err)
		}

		supervisor := process.NewSupervisor(process.Options{
			Command:     child,
			Broadcaster: eventBus,
			Logger:      logging.GetLogger("process"),
		})

		// Edits apply to logging right away and to the child on its next
		// start; a running child is untouched.
		watcher := config.NewConfigWatcher(opts.Config, config.ReloadOptions(opts, cli.Root()), logging.GetLogger("config"))
		watcher.OnReload(func(next *Options) {
			logging.Initialize(loggingConfig(next))

			cmd, cmdErr := childCommand(next)
			if cmdErr != nil {
				logger.Warn("Ignoring invalid child command from reload", "error", cmdErr)
				return
			}
			if cmd.String() != supervisor.GetCommand().String() {
				supervisor.SetCommand(cmd)
				logger.Info("Child command reloaded", "command", cmd.String())
			}
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Controller:        supervisor,
			EventBus:          eventBus,
			FrontendDir:       opts.FrontendDir,
			SubscriberBuffer:  opts.SubscriberBuffer,
			PrometheusHandler: exporters.HTTPHandler(),
		})

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		stopTracking := notifier.TrackProcess(eventBus)

		hooks.OnStart(func() {
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Config hot reload disabled", "path", opts.Config, "error", startErr)
			}

			notifier.Ready()
			logger.Info("Starting HTTP server", "port", opts.Port, "command", supervisor.GetCommand().String())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}

			// Never leave an orphaned child behind.
			if res, stopErr := supervisor.Stop(context.Background()); stopErr != nil {
				logger.Error("Failed to stop child", "error", stopErr)
			} else if !res.AlreadyStopped {
				logger.Info("Child stopped", "pid", res.PID)
			}
			stopTracking()
		})
	})

	cli.Root().Use = "warden"
	cli.Root().Short = "Supervise one child process and expose it over HTTP"
	cli.Root().AddCommand(cmd.CreateVersionCmd())
	cli.Root().AddCommand(cmd.CreateCheckCmd())

	cli.Run()
}
