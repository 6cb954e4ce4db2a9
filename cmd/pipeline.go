package cmd

import (
	"fmt"
	"io"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/parser"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/source"
)

var flagSheet string

// newPipeline wires fetcher, parser and enrichment from the loaded config.
func newPipeline() (*pipeline.Pipeline, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("no source configured (set source_url or pass --source)")
	}
	fetcher := source.NewFetcher(source.Options{
		Timeout:          cfg.HTTPTimeout(),
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay(),
		RetryMaxDelay:    cfg.RetryMaxDelay(),
		Logger:           logger,
	})
	encodings := cfg.Encodings
	if len(encodings) == 0 {
		encodings = parser.DefaultEncodings
	}
	return pipeline.New(pipeline.Options{
		Source:       cfg.SourceURL,
		CacheTTL:     cfg.CacheTTL(),
		KeepLastGood: cfg.KeepLastGood,
		Fetcher:      fetcher,
		Parse:        parser.Options{Encodings: encodings, Sheet: flagSheet},
		Keywords:     analysis.DefaultRoleKeywords().Merge(cfg.RoleKeywords),
		Enrich: analysis.EnrichOptions{
			Months:           analysis.MonthTable(cfg.MonthLocale),
			DropInvalidDates: cfg.DropInvalidDates,
		},
		Logger: logger,
	}), nil
}

// selectionOr returns state, or the configured default when state is empty.
func selectionOr(state string) string {
	if state != "" {
		return state
	}
	if cfg != nil && cfg.DefaultState != "" {
		return cfg.DefaultState
	}
	return analysis.SelectionTotal
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "⚠ Warning: %s\n", msg)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "XLSX: sheet name to read (default first sheet)")
}
