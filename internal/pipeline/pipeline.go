package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/heatmap"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
)

// Pipeline runs capture followed by compilation, once or on an interval.
type Pipeline struct {
	capturer *Capturer
	compiler *Compiler
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	latest   atomic.Pointer[heatmap.Series]
}

// New creates a Pipeline.
func New(capturer *Capturer, compiler *Compiler, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		capturer: capturer,
		compiler: compiler,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a series has been compiled.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no heatmap series compiled yet")
	}
	return nil
}

// LatestSeries returns the most recently compiled series.
func (p *Pipeline) LatestSeries() (heatmap.Series, bool) {
	s := p.latest.Load()
	if s == nil {
		return heatmap.Series{}, false
	}
	return *s, true
}

// RunOnce captures a snapshot and then compiles the corpus. A failed capture
// is fatal for the cycle and compilation is skipped.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	if _, err := p.capturer.Capture(ctx); err != nil {
		return err
	}
	return p.CompileOnce(ctx)
}

// CompileOnce compiles the corpus and publishes the series to readers.
func (p *Pipeline) CompileOnce(ctx context.Context) error {
	series, err := p.compiler.Compile(ctx)
	if err != nil {
		return err
	}
	p.latest.Store(&series)
	p.ready.Store(true)
	return nil
}

// Run executes a cycle immediately and then every interval until ctx is
// cancelled. Cycle failures are logged and retried on the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.CaptureRunning.Set(1)
	defer p.metrics.CaptureRunning.Set(0)

	p.cycle(ctx)

	ticker := domain.Clock().NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.cycle(ctx)
		}
	}
}

func (p *Pipeline) cycle(ctx context.Context) {
	if err := p.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("pipeline cycle failed", "error", err)
	}
}
