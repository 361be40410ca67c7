package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultSources are the subreddits scanned when SOURCES is unset.
var DefaultSources = []string{
	"CombatFootage",
	"UkraineWarVideoReport",
	"ukraine",
	"worldnews",
	"UkrainevRussia",
	"UkraineInvasionVideos",
	"UkrainianConflict",
	"Ukraine_UA",
	"UkraineWarReports",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	PlacesFile string

	SnapshotBackend string // file, sqlite, or postgres
	SnapshotDir     string
	SnapshotDSN     string

	Sources          []string
	SourceLimit      int
	SourceTimeout    time.Duration
	SourceMaxRetries int
	SourceBaseURL    string
	UserAgent        string
	MinScore         int
	ExcludeSelfPosts bool

	GeocoderProvider   string // nominatim or mapbox
	GeocoderCountry    string
	GeocoderLanguage   string
	GeocoderTimeout    time.Duration
	NominatimURL       string
	NominatimRateLimit float64 // requests per second
	MapboxToken        string
	GeocodeConcurrency int
	AliasesFile        string
	DefaultCenterLat   float64
	DefaultCenterLon   float64
	OutputPath         string
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	HTTPAddr           string
	CaptureInterval    time.Duration
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
}

// KafkaEnabled reports whether snapshots should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parseDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	captureInterval, err := parseDuration("CAPTURE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	sourceLimit, err := parseInt("SOURCE_LIMIT", 150, 1, 1000)
	if err != nil {
		return nil, err
	}
	sourceMaxRetries, err := parseInt("SOURCE_MAX_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}
	minScore, err := parseInt("MIN_SCORE", 0, -1<<31, 1<<31-1)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseInt("GEOCODE_CONCURRENCY", 1, 1, 64)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("NOMINATIM_RATE_LIMIT", 1)
	if err != nil {
		return nil, err
	}
	centerLat, err := parseFloat("DEFAULT_CENTER_LAT", 49.3956617)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("DEFAULT_CENTER_LON", 30.9809839)
	if err != nil {
		return nil, err
	}

	excludeSelf, err := parseBool("EXCLUDE_SELF_POSTS", false)
	if err != nil {
		return nil, err
	}

	sources := DefaultSources
	if v := os.Getenv("SOURCES"); v != "" {
		sources = splitList(v)
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		PlacesFile: sharedcfg.EnvOrDefault("PLACES_FILE", "data/cities"),

		SnapshotBackend: strings.ToLower(sharedcfg.EnvOrDefault("SNAPSHOT_BACKEND", "file")),
		SnapshotDir:     sharedcfg.EnvOrDefault("SNAPSHOT_DIR", "data/historic"),
		SnapshotDSN:     os.Getenv("SNAPSHOT_DSN"),

		Sources:          sources,
		SourceLimit:      sourceLimit,
		SourceTimeout:    sourceTimeout,
		SourceMaxRetries: sourceMaxRetries,
		SourceBaseURL:    sharedcfg.EnvOrDefault("SOURCE_BASE_URL", "https://www.reddit.com"),
		UserAgent:        sharedcfg.EnvOrDefault("USER_AGENT", "place-mention-heatmap/1.0"),
		MinScore:         minScore,
		ExcludeSelfPosts: excludeSelf,

		GeocoderProvider:   strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", "nominatim")),
		GeocoderCountry:    strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_COUNTRY", "ua")),
		GeocoderLanguage:   sharedcfg.EnvOrDefault("GEOCODER_LANGUAGE", "en"),
		GeocoderTimeout:    geocoderTimeout,
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimRateLimit: rateLimit,
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),
		GeocodeConcurrency: concurrency,
		AliasesFile:        os.Getenv("ALIASES_FILE"),
		DefaultCenterLat:   centerLat,
		DefaultCenterLon:   centerLon,

		OutputPath:         sharedcfg.EnvOrDefault("OUTPUT_PATH", "heatmap.json"),
		KafkaBrokers:       brokers,
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "place-mention-snapshots"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CaptureInterval:    captureInterval,
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SnapshotBackend {
	case "file":
		if c.SnapshotDir == "" {
			return errors.New("SNAPSHOT_DIR is required for the file backend")
		}
	case "sqlite", "postgres":
		if c.SnapshotDSN == "" {
			return fmt.Errorf("SNAPSHOT_DSN is required for the %s backend", c.SnapshotBackend)
		}
	default:
		return fmt.Errorf("invalid SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}

	switch c.GeocoderProvider {
	case "nominatim":
		if c.NominatimRateLimit <= 0 {
			return errors.New("NOMINATIM_RATE_LIMIT must be positive")
		}
	case "mapbox":
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}

	if len(c.GeocoderCountry) != 2 {
		return fmt.Errorf("invalid GEOCODER_COUNTRY %q: want an ISO 3166-1 alpha-2 code", c.GeocoderCountry)
	}
	if len(c.Sources) == 0 {
		return errors.New("SOURCES must name at least one source")
	}
	if c.PlacesFile == "" {
		return errors.New("PLACES_FILE is required")
	}
	if c.KafkaEnabled() && c.KafkaSnapshotTopic == "" {
		return errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
