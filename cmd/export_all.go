package cmd

import (
	"fmt"
	"sync"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/export"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	eaDir   string
	eaJobs  int
	eaQuiet bool
)

var exportAllCmd = &cobra.Command{
	Use:   "export-all",
	Short: "Export CSV and XLSX for TOTAL and every state, with progress",
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
		states := analysis.States(snap.Dataset)
		dir := exportDir(eaDir)
		out := cmd.OutOrStdout()

		var (
			mu   sync.Mutex
			done int
		)
		total := len(states)
		g, ctx := errgroup.WithContext(cmd.Context())
		if eaJobs > 0 {
			g.SetLimit(eaJobs)
		}
		for _, st := range states {
			st := st
			g.Go(func() error {
				rep, err := p.Run(ctx, pipeline.NewSession(st))
				if err != nil {
					return fmt.Errorf("%s: %w", st, err)
				}
				paths, err := export.Files(dir, rep)
				if err != nil {
					return fmt.Errorf("%s: %w", st, err)
				}
				mu.Lock()
				defer mu.Unlock()
				done++
				if !eaQuiet {
					fmt.Fprintf(out, "[%d/%d] ✓ %s (%s records) -> %d files\n", done, total, st, analysis.FormatInt(rep.Records), len(paths))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Exported %d selections to %s\n", total, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportAllCmd)
	exportAllCmd.Flags().StringVarP(&eaDir, "dir", "d", "", "output directory (default export_dir)")
	exportAllCmd.Flags().IntVarP(&eaJobs, "jobs", "j", 4, "selections exported in parallel (0 = unlimited)")
	exportAllCmd.Flags().BoolVar(&eaQuiet, "quiet", false, "suppress per-selection progress")
}
