package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/cache"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/parser"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/source"
)

// Fetcher retrieves raw source bytes.
type Fetcher interface {
	Fetch(ctx context.Context, src string) (*source.Payload, error)
}

// Snapshot is one successfully loaded and enriched copy of the source.
type Snapshot struct {
	Source    string
	Dataset   *analysis.Dataset
	Format    string
	Encoding  string
	Delimiter rune
	Warnings  []string
	LoadedAt  time.Time
}

// Options configures a Pipeline.
type Options struct {
	Source       string
	CacheTTL     time.Duration
	KeepLastGood bool
	Fetcher      Fetcher
	Parse        parser.Options
	Keywords     analysis.RoleKeywords
	Enrich       analysis.EnrichOptions
	Logger       *slog.Logger
}

// Pipeline turns (snapshot cache, session) into a report.
type Pipeline struct {
	source       string
	keepLastGood bool
	fetcher      Fetcher
	parseOpt     parser.Options
	keywords     analysis.RoleKeywords
	enrich       analysis.EnrichOptions
	logger       *slog.Logger
	cache        *cache.Cache[*Snapshot]

	mu       sync.Mutex
	lastGood map[string]*Snapshot
}

// New builds a pipeline. A nil Fetcher gets a default source.Fetcher.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = source.NewFetcher(source.Options{Logger: opts.Logger})
	}
	if opts.Keywords == nil {
		opts.Keywords = analysis.DefaultRoleKeywords()
	}
	if opts.Enrich.Months.Short[0] == "" {
		opts.Enrich.Months = analysis.MonthsPT
	}
	return &Pipeline{
		source:       source.NormalizeURL(opts.Source),
		keepLastGood: opts.KeepLastGood,
		fetcher:      opts.Fetcher,
		parseOpt:     opts.Parse,
		keywords:     opts.Keywords,
		enrich:       opts.Enrich,
		logger:       opts.Logger,
		cache:        cache.New[*Snapshot](opts.CacheTTL),
		lastGood:     map[string]*Snapshot{},
	}
}

// Close stops the cache sweeper.
func (p *Pipeline) Close() { p.cache.Close() }

// Source returns the normalized source location.
func (p *Pipeline) Source() string { return p.source }

// Load fetches, parses and enriches src without touching the cache.
func (p *Pipeline) Load(ctx context.Context, src string) (*Snapshot, error) {
	payload, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(payload.Name, payload.Data, p.parseOpt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	for _, w := range res.Warnings {
		p.logger.Warn("decoding degraded", "source", src, "warning", w)
	}
	ds, err := analysis.Build(res.Table, p.keywords, p.enrich)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	snap := &Snapshot{
		Source:    src,
		Dataset:   ds,
		Format:    res.Format,
		Encoding:  res.Encoding,
		Delimiter: res.Delimiter,
		Warnings:  append([]string(nil), res.Warnings...),
		LoadedAt:  time.Now(),
	}
	if ds.Dropped > 0 {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%d rows without a valid date were dropped", ds.Dropped))
	}
	p.logger.Info("source loaded", "source", src, "format", res.Format, "encoding", res.Encoding,
		"rows", ds.Len(), "undated", ds.Undated, "dropped", ds.Dropped)
	return snap, nil
}

// Snapshot returns the cached snapshot, loading it on a miss. With
// KeepLastGood a failed load falls back to the previous snapshot.
func (p *Pipeline) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, hit, err := p.cache.Get(ctx, p.source, func(ctx context.Context) (*Snapshot, error) {
		return p.Load(ctx, p.source)
	})
	if err != nil {
		if prev := p.previous(); prev != nil && p.keepLastGood {
			p.logger.Warn("load failed, serving previous snapshot", "source", p.source, "loaded_at", prev.LoadedAt, "err", err)
			stale := *prev
			stale.Warnings = append(append([]string(nil), prev.Warnings...),
				fmt.Sprintf("showing data loaded at %s: %v", prev.LoadedAt.Format(time.RFC3339), err))
			return &stale, nil
		}
		return nil, err
	}
	if !hit {
		p.mu.Lock()
		p.lastGood[p.source] = snap
		p.mu.Unlock()
	}
	return snap, nil
}

func (p *Pipeline) previous() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastGood[p.source]
}

// Refresh drops the cached snapshot and loads it again.
func (p *Pipeline) Refresh(ctx context.Context) (*Snapshot, error) {
	p.cache.Invalidate(p.source)
	return p.Snapshot(ctx)
}

// Run builds the report for the session's selection.
func (p *Pipeline) Run(ctx context.Context, s Session) (*analysis.Report, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rep := analysis.BuildReport(snap.Dataset, s.Selection)
	rep.Warnings = append(rep.Warnings, snap.Warnings...)
	p.logger.Debug("report built", "session", s.ID, "selection", rep.Selection,
		"reference_year", rep.ReferenceYear, "records", rep.Records)
	return rep, nil
}

// States returns the selection options of the current snapshot.
func (p *Pipeline) States(ctx context.Context) ([]string, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.States(snap.Dataset), nil
}
