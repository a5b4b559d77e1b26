package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Output formats accepted in OUTPUT_FORMATS.
const (
	FormatCSV       = "csv"
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
)

// SQL drivers accepted in SQL_DRIVER.
const (
	DriverSQLite     = "sqlite"
	DriverPostgres   = "postgres"
	DriverClickHouse = "clickhouse"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	DownloadDir string

	OutputDir     string
	OutputFormats []string
	OutputLayout  domain.Layout

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MetricsTextfile string

	BatchSize          int
	BatchFlushInterval time.Duration

	// Scheduling of the long-running service.
	RunInterval  time.Duration
	RunDayOffset int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// SQLDriver is empty when the SQL loader is disabled.
	SQLDriver string
	SQLDSN    string

	// MinioEndpoint is empty when raw archiving is disabled.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
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

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	dayOffset, err := strconv.Atoi(sharedcfg.EnvOrDefault("RUN_DAY_OFFSET", "1"))
	if err != nil || dayOffset < 0 {
		return nil, errors.New("invalid RUN_DAY_OFFSET")
	}

	formats, err := parseFormats(sharedcfg.EnvOrDefault("OUTPUT_FORMATS", "csv,geojson"))
	if err != nil {
		return nil, err
	}

	layout := domain.Layout(sharedcfg.EnvOrDefault("OUTPUT_LAYOUT", string(domain.LayoutMessage)))
	if layout != domain.LayoutMessage && layout != domain.LayoutProduct {
		return nil, fmt.Errorf("invalid OUTPUT_LAYOUT %q", layout)
	}

	cfg := &Config{
		BaseURL:     strings.TrimRight(sharedcfg.EnvOrDefault("ERG5_BASE_URL", "https://dati-simc.arpae.it/opendata/erg5v2"), "/"),
		HTTPTimeout: httpTimeout,
		DownloadDir: sharedcfg.EnvOrDefault("DOWNLOAD_DIR", "."),

		OutputDir:     sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		OutputFormats: formats,
		OutputLayout:  layout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RunInterval:  runInterval,
		RunDayOffset: dayOffset,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "erg5-cell-values"),

		SQLDriver: os.Getenv("SQL_DRIVER"),
		SQLDSN:    os.Getenv("SQL_DSN"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    sharedcfg.EnvOrDefault("MINIO_BUCKET", "erg5-raw"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required")
		}
	}
	switch cfg.SQLDriver {
	case "":
	case DriverSQLite, DriverPostgres, DriverClickHouse:
		if cfg.SQLDSN == "" {
			return nil, errors.New("SQL_DSN is required when SQL_DRIVER is set")
		}
	default:
		return nil, fmt.Errorf("invalid SQL_DRIVER %q", cfg.SQLDriver)
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		return nil, errors.New("MINIO_BUCKET is required when MINIO_ENDPOINT is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFormats(s string) ([]string, error) {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		switch f {
		case FormatCSV, FormatGeoJSON, FormatShapefile:
		default:
			return nil, fmt.Errorf("invalid OUTPUT_FORMATS entry %q", f)
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("OUTPUT_FORMATS is empty")
	}
	return formats, nil
}
