package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/heatmap"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
)

// PassResolver resolves places for one compilation pass.
type PassResolver interface {
	heatmap.Resolver
	ResolveAll(ctx context.Context, places []string, concurrency int) map[string]domain.Resolution
	Len() int
}

// ResolverFactory returns a resolver with an empty cache. It is called once
// per pass so each pass looks every place up at most once.
type ResolverFactory func() PassResolver

// CompileOptions configures a Compiler.
type CompileOptions struct {
	// OutputPath receives the series as JSON. Empty skips writing.
	OutputPath string
	// Concurrency above 1 pre-resolves all places in parallel before compiling.
	Concurrency int
	Precision   int
	Center      domain.Coordinate
}

// Compiler loads the full corpus and turns it into a heatmap series.
type Compiler struct {
	store       SnapshotStore
	newResolver ResolverFactory
	opts        CompileOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewCompiler creates a Compiler.
func NewCompiler(store SnapshotStore, newResolver ResolverFactory, opts CompileOptions, logger *slog.Logger, metrics *observability.Metrics) *Compiler {
	return &Compiler{
		store:       store,
		newResolver: newResolver,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
}

// Compile runs one pass over the corpus. Corrupt snapshots and unresolvable
// places are skipped; a corpus read failure, an output write failure, or a
// cancelled ctx is an error. A cancelled pass never replaces the output.
func (c *Compiler) Compile(ctx context.Context) (heatmap.Series, error) {
	start := time.Now()

	history, err := c.store.LoadAll(ctx)
	if err != nil {
		return heatmap.Series{}, fmt.Errorf("load corpus: %w", err)
	}

	resolver := c.newResolver()
	if c.opts.Concurrency > 1 {
		places := history.Places()
		resolved := resolver.ResolveAll(ctx, places, c.opts.Concurrency)
		c.logger.Debug("places pre-resolved", "places", len(places), "outcomes", len(resolved))
	}

	frames := heatmap.NewCompiler(resolver, c.opts.Precision, c.logger).Compile(ctx, history)
	// Lookups cut short by cancellation come back as failures, so the frames
	// are incomplete.
	if err := ctx.Err(); err != nil {
		return heatmap.Series{}, fmt.Errorf("compile interrupted: %w", err)
	}
	c.logger.Debug("places resolved", "cached_outcomes", resolver.Len())

	series := heatmap.BuildSeries(frames, c.opts.Center, c.opts.Precision)

	if c.opts.OutputPath != "" {
		if err := writeSeries(c.opts.OutputPath, series); err != nil {
			return series, err
		}
	}

	c.metrics.CompileDuration.Observe(time.Since(start).Seconds())
	c.metrics.FramesCompiled.Set(float64(len(frames)))
	c.metrics.LastCompileUnixTime.Set(float64(domain.Clock().Now().Unix()))
	c.logger.Info("heatmap compiled",
		"snapshots", len(history),
		"frames", len(frames),
		"output", c.opts.OutputPath,
		"duration", time.Since(start),
	)
	return series, nil
}

// writeSeries replaces path atomically so readers never see a partial file.
func writeSeries(path string, series heatmap.Series) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
