package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/google/uuid"
)

// SnapshotStore persists snapshots and loads the corpus.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	LoadAll(ctx context.Context) (domain.History, error)
}

// Publisher fans a saved snapshot out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// SummaryWriter reports the outcome of a capture to the operator.
type SummaryWriter interface {
	Summary(scanned int, mentions domain.Mentions) error
}

// CaptureOptions configures a Capturer.
type CaptureOptions struct {
	Sources []string
	Limit   int
	Count   domain.CountOptions

	// Optional collaborators.
	Publisher Publisher
	Summary   SummaryWriter
}

// SourceResult is the contribution of one source to a capture. Err is set,
// wrapping domain.ErrSourceFault, when the source could not be fetched; such a
// source contributes nothing.
type SourceResult struct {
	Source   string
	Mentions domain.Mentions
	Scanned  int
	Err      error
}

// CaptureResult summarizes one capture run.
type CaptureResult struct {
	RunID    string
	Snapshot domain.Snapshot
	Scanned  int
	Sources  []SourceResult
}

// FailedSources returns the names of sources that could not be fetched.
func (r CaptureResult) FailedSources() []string {
	var failed []string
	for _, s := range r.Sources {
		if s.Err != nil {
			failed = append(failed, s.Source)
		}
	}
	return failed
}

// Capturer counts place mentions across all sources and saves one snapshot
// per run.
type Capturer struct {
	places  []string
	source  domain.ItemSource
	store   SnapshotStore
	opts    CaptureOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCapturer creates a Capturer for the given place list.
func NewCapturer(places []string, source domain.ItemSource, store SnapshotStore, opts CaptureOptions, logger *slog.Logger, metrics *observability.Metrics) *Capturer {
	return &Capturer{
		places:  places,
		source:  source,
		store:   store,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Capture fetches every source, merges the per-source counts, and saves the
// result under the current capture time. Source faults are logged and skipped.
// Only a failure to save the snapshot is returned as an error.
func (c *Capturer) Capture(ctx context.Context) (CaptureResult, error) {
	res := CaptureResult{RunID: uuid.NewString()}
	logger := c.logger.With("run_id", res.RunID)
	logger.Info("capture started", "sources", len(c.opts.Sources), "places", len(c.places))

	total := domain.Mentions{}
	for _, source := range c.opts.Sources {
		sr := c.captureSource(ctx, source)
		res.Sources = append(res.Sources, sr)
		if sr.Err != nil {
			if errors.Is(sr.Err, context.Canceled) {
				return res, sr.Err
			}
			logger.Warn("source fetch failed, skipping", "source", source, "error", sr.Err)
			continue
		}
		res.Scanned += sr.Scanned
		total = total.Merge(sr.Mentions)
	}

	res.Snapshot = domain.Snapshot{TakenAt: domain.CaptureTime(), Mentions: total}
	if err := c.store.Save(ctx, res.Snapshot); err != nil {
		return res, fmt.Errorf("save snapshot %s: %w", res.Snapshot.Key(), err)
	}

	if c.opts.Publisher != nil {
		if err := c.opts.Publisher.Publish(ctx, res.Snapshot); err != nil {
			c.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
			logger.Warn("snapshot publish failed", "key", res.Snapshot.Key(), "error", err)
		} else {
			c.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
		}
	}

	if c.opts.Summary != nil {
		if err := c.opts.Summary.Summary(res.Scanned, total); err != nil {
			logger.Warn("write summary failed", "error", err)
		}
	}

	logger.Info("capture finished",
		"key", res.Snapshot.Key(),
		"scanned", res.Scanned,
		"places", len(total),
		"mentions", total.Total(),
		"failed_sources", len(res.FailedSources()),
	)
	return res, nil
}

func (c *Capturer) captureSource(ctx context.Context, source string) SourceResult {
	sr := SourceResult{Source: source}

	items, err := c.source.FetchRanked(ctx, source, c.opts.Limit)
	if err != nil {
		c.metrics.SourceFetches.WithLabelValues("error").Inc()
		if !errors.Is(err, domain.ErrSourceFault) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrSourceFault, source, err)
		}
		sr.Err = err
		return sr
	}
	c.metrics.SourceFetches.WithLabelValues("success").Inc()

	counted := domain.CountMentions(c.places, items, c.opts.Count)
	c.metrics.ItemsScanned.Add(float64(counted.Scanned))
	sr.Mentions = counted.Mentions
	sr.Scanned = counted.Scanned

	c.logger.Debug("source counted",
		"source", source,
		"scanned", counted.Scanned,
		"eligible", counted.Eligible,
		"places", len(counted.Mentions),
	)
	return sr
}
