package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/smazurov/mfcctl/internal/trace"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
	"github.com/spf13/cobra"
)

// CreateTraceCmd creates the trace command with its show and replay
// subcommands.
func CreateTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect CBOR field-write traces",
	}
	cmd.AddCommand(createTraceShowCmd(), createTraceReplayCmd())
	return cmd
}

func traceFilter(contextID, mode, field string) (trace.Filter, error) {
	f := trace.Filter{Context: contextID}
	if mode != "" {
		m, err := bufctrl.ParseMode(mode)
		if err != nil {
			return f, err
		}
		f.Mode = &m
	}
	if field != "" {
		fld, err := bufctrl.ParseField(field)
		if err != nil {
			return f, err
		}
		f.Field = &fld
	}
	return f, nil
}

func createTraceShowCmd() *cobra.Command {
	var contextID, mode, field string
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print trace records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := traceFilter(contextID, mode, field)
			if err != nil {
				return err
			}
			r, err := trace.Open(args[0], filter)
			if err != nil {
				return err
			}
			defer r.Close()
			for rec, err := range r.All() {
				if err != nil {
					return fmt.Errorf("read trace: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contextID, "context", "", "Only records of this context")
	cmd.Flags().StringVar(&mode, "mode", "", "Only records of this mode (sync, queued)")
	cmd.Flags().StringVar(&field, "field", "", "Only records of this field, e.g. E_PICTURE_TAG")
	return cmd
}

func createTraceReplayCmd() *cobra.Command {
	var contextID string
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Rebuild the register bank a trace leaves behind",
		Long:  `Replays the synchronous-mode writes of a trace into an empty register bank and prints every register that ends up non-zero.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := trace.Open(args[0], trace.Filter{Context: contextID})
			if err != nil {
				return err
			}
			defer r.Close()

			regs := registerBank{}
			n, err := trace.Replay(r, regs)
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d writes replayed\n", n)
			for _, addr := range slices.Sorted(maps.Keys(regs)) {
				if v := regs[addr]; v != 0 {
					fmt.Fprintf(out, "0x%04x  %-32s 0x%08x\n", addr, bufctrl.FieldAt(addr), v)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contextID, "context", "", "Only writes of this context")
	return cmd
}

type registerBank map[uint32]uint32

func (b registerBank) Read(addr uint32) uint32 { return b[addr] }
func (b registerBank) Write(addr, v uint32)    { b[addr] = v }
