package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/mfcctl/pkg/bufctrl"
	"github.com/spf13/cobra"
)

// CreateControlsCmd creates the controls command, which prints the control
// descriptor table.
func CreateControlsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "controls [encoder|decoder]",
		Short:     "List control descriptors",
		Long:      `Prints every control a context kind accepts with the device field it maps to. Without an argument both kinds are listed.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"encoder", "decoder"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []bufctrl.Kind{bufctrl.KindEncoder, bufctrl.KindDecoder}
			if len(args) == 1 {
				kind, err := bufctrl.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []bufctrl.Kind{kind}
			}
			for _, kind := range kinds {
				writeControls(cmd.OutOrStdout(), bufctrl.DefaultRegistry(), kind)
			}
			return nil
		},
	}
}

func writeControls(out io.Writer, reg *bufctrl.Registry, kind bufctrl.Kind) {
	fmt.Fprintf(out, "%s controls\n", kind)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDIR\tLOCATION\tFIELD\tBITS\tFLAG\tVOLATILE")
	for _, d := range reg.Descriptors(kind) {
		field, bits, flag := "-", "-", "-"
		if d.Span.Field != bufctrl.FieldNone {
			field = d.Span.Field.String()
			bits = fmt.Sprintf("%d:%d", d.Span.Shift+d.Span.Width-1, d.Span.Shift)
		}
		if d.Get != nil {
			field += " -> " + d.Get.Field.String()
		}
		if d.Flag != nil {
			flag = fmt.Sprintf("%s:%d", d.Flag.Field, d.Flag.Bit)
		}
		fmt.Fprintf(tw, "0x%08x\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			uint32(d.ID), d.ID, d.Direction, d.Location, field, bits, flag, d.Volatile)
	}
	tw.Flush()
	fmt.Fprintln(out)
}
