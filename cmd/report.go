package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	repState  string
	repFormat string
	repOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the dashboard report for one state (or TOTAL)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		rep, err := p.Run(cmd.Context(), pipeline.NewSession(selectionOr(repState)))
		if err != nil {
			return err
		}

		var out []byte
		switch strings.ToLower(strings.TrimSpace(repFormat)) {
		case "", "md", "markdown":
			out = []byte(rep.Markdown())
		case "json":
			out, err = json.MarshalIndent(rep, "", "  ")
			if err == nil {
				out = append(out, '\n')
			}
		case "yaml", "yml":
			out, err = yaml.Marshal(rep)
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json|yaml)", repFormat)
		}
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		printWarnings(cmd.ErrOrStderr(), rep.Warnings)
		if repOutput != "" {
			if err := utils.SafeWriteFile(repOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", repOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repState, "state", "s", "", "state code to select (default from config, TOTAL for all)")
	reportCmd.Flags().StringVarP(&repFormat, "format", "f", "md", "output format: md|json|yaml")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "optional path to write the report")
}
