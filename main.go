package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/mfcctl/cmd"
	"github.com/smazurov/mfcctl/internal/api"
	"github.com/smazurov/mfcctl/internal/config"
	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/internal/logging"
	"github.com/smazurov/mfcctl/internal/metrics"
	"github.com/smazurov/mfcctl/internal/presets"
	"github.com/smazurov/mfcctl/internal/systemd"
	"github.com/smazurov/mfcctl/internal/trace"
	"github.com/smazurov/mfcctl/internal/version"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"mfcctl.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings; empty credentials disable auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Presets settings
	PresetsPath     string `help:"Control preset file" default:"presets.toml" toml:"presets.path" env:"PRESETS_PATH"`
	PresetsWatch    bool   `help:"Reload the preset file when it changes" default:"true" toml:"presets.watch" env:"PRESETS_WATCH"`
	PresetsDebounce string `help:"Quiet period before a preset reload" default:"1s" toml:"presets.debounce" env:"PRESETS_DEBOUNCE"`

	// Trace settings
	TracePath string `help:"Append every field write to this CBOR trace file" default:"" toml:"trace.path" env:"TRACE_PATH"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBufctrl string `help:"Control engine logging level" default:"info" toml:"logging.bufctrl" env:"LOGGING_BUFCTRL"`
	LoggingDevice  string `help:"Device simulator logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingSession string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingPresets string `help:"Presets logging level" default:"info" toml:"logging.presets" env:"LOGGING_PRESETS"`
	LoggingTrace   string `help:"Trace recorder logging level" default:"info" toml:"logging.trace" env:"LOGGING_TRACE"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"bufctrl": opts.LoggingBufctrl,
				"device":  opts.LoggingDevice,
				"session": opts.LoggingSession,
				"presets": opts.LoggingPresets,
				"trace":   opts.LoggingTrace,
				"api":     opts.LoggingAPI,
			},
		})
		logger := logging.GetLogger("main")
		logger.Info("starting", "version", version.String())

		eventBus := events.New()

		var tracer bufctrl.Tracer
		var recorder *trace.Recorder
		if opts.TracePath != "" {
			rec, err := trace.NewFileRecorder(opts.TracePath, logging.GetLogger("trace"))
			if err != nil {
				logger.Error("Failed to open trace file", "path", opts.TracePath, "error", err)
				os.Exit(1)
			}
			recorder, tracer = rec, rec
			logger.Info("tracing field writes", "path", opts.TracePath)
		}

		sess := cmd.NewSession(eventBus, tracer)

		store, err := presets.NewStore(opts.PresetsPath, eventBus, logging.GetLogger("presets"))
		if err != nil {
			logger.Error("Failed to load presets", "path", opts.PresetsPath, "error", err)
			os.Exit(1)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Session:      sess,
			Presets:      store,
			Bus:          eventBus,
			OnListen: func(net.Addr) {
				if _, notifyErr := systemd.Ready(); notifyErr != nil {
					logger.Warn("sd_notify failed", "error", notifyErr)
				}
			},
		}
		if opts.MetricsEnabled {
			apiOpts.MetricsHandler = metrics.Handler()
		}
		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if opts.PresetsWatch {
				debounce, parseErr := time.ParseDuration(opts.PresetsDebounce)
				if parseErr != nil {
					logger.Warn("Invalid presets debounce, using default", "value", opts.PresetsDebounce)
					debounce = config.DefaultDebounce
				}
				if watchErr := store.Watch(ctx, debounce); watchErr != nil {
					logger.Warn("Failed to watch presets", "error", watchErr)
				}
			}

			go systemd.Watchdog(ctx, logger)
			if startErr := server.Start(ctx, opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			systemd.Stopping()
			cancel()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := store.Stop(); stopErr != nil {
				logger.Warn("Error stopping preset watcher", "error", stopErr)
			}
			if recorder != nil {
				if closeErr := recorder.Close(); closeErr != nil {
					logger.Warn("Error closing trace file", "error", closeErr)
				}
			}
		})
	})

	root := cli.Root()
	root.Use = "mfcctl"
	root.Short = "Per-frame codec control plane with a simulated device"
	root.Version = version.String()

	root.AddCommand(cmd.CreateControlsCmd())
	root.AddCommand(cmd.CreateRunCmd())
	root.AddCommand(cmd.CreateTraceCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(version.String())
		},
	})

	cli.Run()
}
