package cmd

import (
	"fmt"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/spf13/cobra"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List the selectable states with their record counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		snap, err := p.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), snap.Warnings)
		counts := analysis.StateCounts(snap.Dataset)
		out := cmd.OutOrStdout()
		for _, st := range analysis.States(snap.Dataset) {
			n := counts[st]
			if analysis.IsTotal(st) {
				n = snap.Dataset.Len()
			}
			fmt.Fprintf(out, "%-6s %s\n", st, analysis.FormatInt(n))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statesCmd)
}
