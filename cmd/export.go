package cmd

import (
	"fmt"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/export"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	expState string
	expDir   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered rows of one selection as CSV and XLSX",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		rep, err := p.Run(cmd.Context(), pipeline.NewSession(selectionOr(expState)))
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), rep.Warnings)
		paths, err := export.Files(exportDir(expDir), rep)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		}
		return nil
	},
}

// exportDir returns dir, or the configured export_dir when dir is empty.
func exportDir(dir string) string {
	if dir != "" {
		return dir
	}
	if cfg != nil && cfg.ExportDir != "" {
		return cfg.ExportDir
	}
	return "."
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expState, "state", "s", "", "state code to select (default from config, TOTAL for all)")
	exportCmd.Flags().StringVarP(&expDir, "dir", "d", "", "output directory (default export_dir)")
}
