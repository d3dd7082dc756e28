package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/smazurov/mfcctl/internal/logging"
	"github.com/smazurov/mfcctl/internal/presets"
	"github.com/smazurov/mfcctl/internal/trace"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the run command, which plays a scenario file against
// the simulated device and prints one JSON report per frame.
func CreateRunCmd() *cobra.Command {
	var presetsPath string
	var tracePath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run <scenario.toml>",
		Short: "Play a frame scenario",
		Long: `Loads a TOML scenario, opens its contexts and drives every frame through ` +
			`apply, device execution and collect (or recover for aborted frames).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: logLevel, Format: "text"})
			logger := logging.GetLogger("main")

			sc, err := presets.LoadScenario(args[0])
			if err != nil {
				return err
			}

			var store *presets.Store
			if presetsPath != "" {
				store, err = presets.NewStore(presetsPath, nil, logging.GetLogger("presets"))
				if err != nil {
					return err
				}
			}

			var tracer bufctrl.Tracer
			if tracePath != "" {
				rec, err := trace.NewFileRecorder(tracePath, logging.GetLogger("trace"))
				if err != nil {
					return fmt.Errorf("open trace: %w", err)
				}
				defer rec.Close()
				tracer = rec
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := presets.NewRunner(NewSession(nil, tracer), store, logger)
			reports, err := runner.Run(ctx, sc)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range reports {
				if encErr := enc.Encode(r); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}
	cmd.SetContext(context.Background())
	cmd.Flags().StringVar(&presetsPath, "presets", "", "Preset file for presets the scenario does not define")
	cmd.Flags().StringVar(&tracePath, "trace", "", "Append every field write to this CBOR trace file")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	return cmd
}
