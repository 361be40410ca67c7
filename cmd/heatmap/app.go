package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/filestore"
	kafkaadapter "github.com/couchcryptid/place-mention-heatmap/internal/adapter/kafka"
	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/mapbox"
	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/nominatim"
	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/reddit"
	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/resilience"
	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/sqlstore"
	"github.com/couchcryptid/place-mention-heatmap/internal/config"
	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/geocode"
	"github.com/couchcryptid/place-mention-heatmap/internal/heatmap"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/couchcryptid/place-mention-heatmap/internal/pipeline"
	"github.com/couchcryptid/place-mention-heatmap/internal/report"
)

// app holds the wired components for one invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	capturer *pipeline.Capturer
	compiler *pipeline.Compiler
	pipeline *pipeline.Pipeline
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, colored bool) (*app, error) {
	metrics := observability.NewMetrics()
	a := &app{cfg: cfg, logger: logger}

	// The place list is required before anything else runs.
	places, err := domain.LoadPlaces(cfg.PlacesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("place list loaded", "file", cfg.PlacesFile, "places", len(places))

	store, err := openStore(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	aliases := geocode.DefaultAliases()
	if cfg.AliasesFile != "" {
		if aliases, err = geocode.LoadAliases(cfg.AliasesFile); err != nil {
			a.Close()
			return nil, err
		}
	}

	printer := report.NewPrinter(out, colored)
	geocoder := resilience.NewBreakerGeocoder(newGeocoder(cfg, logger, metrics), 30*time.Second, logger)
	newResolver := func() pipeline.PassResolver {
		return geocode.NewResolver(geocoder, geocode.Options{
			Country:  cfg.GeocoderCountry,
			Aliases:  aliases,
			Observer: printer,
		}, logger, metrics)
	}

	captureOpts := pipeline.CaptureOptions{
		Sources: cfg.Sources,
		Limit:   cfg.SourceLimit,
		Count: domain.CountOptions{
			MinScore:         cfg.MinScore,
			ExcludeSelfPosts: cfg.ExcludeSelfPosts,
		},
		Summary: printer,
	}
	if cfg.KafkaEnabled() {
		pub := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic, logger)
		captureOpts.Publisher = pub
		a.closers = append(a.closers, pub)
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic)
	}

	source := reddit.NewClient(reddit.Options{
		BaseURL:    cfg.SourceBaseURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.SourceTimeout,
		MaxRetries: cfg.SourceMaxRetries,
	}, logger)

	a.capturer = pipeline.NewCapturer(places, source, store, captureOpts, logger, metrics)
	a.compiler = pipeline.NewCompiler(store, newResolver, pipeline.CompileOptions{
		OutputPath:  cfg.OutputPath,
		Concurrency: cfg.GeocodeConcurrency,
		Precision:   heatmap.DefaultPrecision,
		Center:      domain.Coordinate{Lat: cfg.DefaultCenterLat, Lon: cfg.DefaultCenterLon},
	}, logger, metrics)
	a.pipeline = pipeline.New(a.capturer, a.compiler, cfg.CaptureInterval, logger, metrics)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (pipeline.SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "file":
		return filestore.New(cfg.SnapshotDir, logger, metrics), nil
	case "sqlite", "postgres":
		s, err := sqlstore.Open(ctx, cfg.SnapshotBackend, cfg.SnapshotDSN, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot backend %q", cfg.SnapshotBackend)
	}
}

func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if cfg.GeocoderProvider == "mapbox" {
		logger.Info("geocoding via mapbox", "timeout", cfg.GeocoderTimeout)
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderLanguage, cfg.GeocoderTimeout, logger, metrics)
	}
	logger.Info("geocoding via nominatim", "url", cfg.NominatimURL, "rate_limit", cfg.NominatimRateLimit)
	return nominatim.NewClient(nominatim.Options{
		BaseURL:       cfg.NominatimURL,
		UserAgent:     cfg.UserAgent,
		Language:      cfg.GeocoderLanguage,
		Timeout:       cfg.GeocoderTimeout,
		RatePerSecond: cfg.NominatimRateLimit,
	}, logger, metrics)
}
