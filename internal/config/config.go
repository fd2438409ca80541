package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaRequestTopic  string
	KafkaReportTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Open-Meteo historical weather configuration.
	OpenMeteoBaseURL    string
	OpenMeteoTimeout    time.Duration
	OpenMeteoMaxRetries int
	HistoryYears        int

	ParallelAnalysis bool

	// Report persistence. Empty addresses disable the corresponding adapter.
	DatabaseURL     string
	ReportMaxAge    time.Duration
	ValkeyAddr      string
	ReportCacheTTL  time.Duration
	RefreshSchedule string

	// Raw dataset archive (S3-compatible).
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	openMeteoTimeout, err := parsePositiveDuration("OPENMETEO_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	openMeteoRetries, err := parseIntInRange("OPENMETEO_MAX_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}

	historyYears, err := parseIntInRange("HISTORY_YEARS", 10, 1, 30)
	if err != nil {
		return nil, err
	}

	reportMaxAge, err := parsePositiveDuration("REPORT_MAX_AGE", "720h")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("REPORT_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", true)
	if err != nil {
		return nil, err
	}

	parallel, err := parseBool("PARALLEL_ANALYSIS", true)
	if err != nil {
		return nil, err
	}

	archiveSSL, err := parseBool("ARCHIVE_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRequestTopic:  sharedcfg.EnvOrDefault("KAFKA_REQUEST_TOPIC", "climate-report-requests"),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "climate-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "garden-climate"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		OpenMeteoBaseURL:    sharedcfg.EnvOrDefault("OPENMETEO_BASE_URL", "https://archive-api.open-meteo.com/v1/archive"),
		OpenMeteoTimeout:    openMeteoTimeout,
		OpenMeteoMaxRetries: openMeteoRetries,
		HistoryYears:        historyYears,

		ParallelAnalysis: parallel,

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ReportMaxAge:    reportMaxAge,
		ValkeyAddr:      os.Getenv("VALKEY_ADDR"),
		ReportCacheTTL:  cacheTTL,
		RefreshSchedule: sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@daily"),

		ArchiveEndpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
		ArchiveAccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
		ArchiveSecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
		ArchiveBucket:    sharedcfg.EnvOrDefault("ARCHIVE_BUCKET", "climate-datasets"),
		ArchiveUseSSL:    archiveSSL,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaRequestTopic == "" {
			return nil, errors.New("KAFKA_REQUEST_TOPIC is required")
		}
		if cfg.KafkaReportTopic == "" {
			return nil, errors.New("KAFKA_REPORT_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.OpenMeteoBaseURL == "" {
		return nil, errors.New("OPENMETEO_BASE_URL is required")
	}
	if cfg.ArchiveEndpoint != "" && (cfg.ArchiveAccessKey == "" || cfg.ArchiveSecretKey == "") {
		return nil, errors.New("ARCHIVE_ENDPOINT is set but ARCHIVE_ACCESS_KEY or ARCHIVE_SECRET_KEY is missing")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, minVal, maxVal)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
