package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dati-simc.arpae.it/opendata/erg5v2", cfg.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ".", cfg.DownloadDir)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, []string{FormatCSV, FormatGeoJSON}, cfg.OutputFormats)
	assert.Equal(t, domain.LayoutMessage, cfg.OutputLayout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.MetricsTextfile)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, 1, cfg.RunDayOffset)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "erg5-cell-values", cfg.KafkaTopic)
	assert.Empty(t, cfg.SQLDriver)
	assert.Empty(t, cfg.MinioEndpoint)
	assert.Equal(t, "erg5-raw", cfg.MinioBucket)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ERG5_BASE_URL", "http://mirror.local/erg5/")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("DOWNLOAD_DIR", "/tmp/dl")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("OUTPUT_FORMATS", "shapefile, CSV,csv")
	t.Setenv("OUTPUT_LAYOUT", "product")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/erg5.prom")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("RUN_INTERVAL", "6h")
	t.Setenv("RUN_DAY_OFFSET", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "cells")
	t.Setenv("SQL_DRIVER", "sqlite")
	t.Setenv("SQL_DSN", "file:erg5.db")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("MINIO_BUCKET", "raw")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://mirror.local/erg5", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/dl", cfg.DownloadDir)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, []string{FormatShapefile, FormatCSV}, cfg.OutputFormats)
	assert.Equal(t, domain.LayoutProduct, cfg.OutputLayout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/node_exporter/erg5.prom", cfg.MetricsTextfile)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.Equal(t, 2, cfg.RunDayOffset)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "cells", cfg.KafkaTopic)
	assert.Equal(t, DriverSQLite, cfg.SQLDriver)
	assert.Equal(t, "file:erg5.db", cfg.SQLDSN)
	assert.Equal(t, "localhost:9000", cfg.MinioEndpoint)
	assert.Equal(t, "minio", cfg.MinioAccessKey)
	assert.Equal(t, "minio123", cfg.MinioSecretKey)
	assert.Equal(t, "raw", cfg.MinioBucket)
	assert.True(t, cfg.MinioUseSSL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
		want       string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"BATCH_SIZE", "0", "BATCH_SIZE"},
		{"BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"BATCH_FLUSH_INTERVAL", "not-a-duration", "BATCH_FLUSH_INTERVAL"},
		{"HTTP_TIMEOUT", "bad", "HTTP_TIMEOUT"},
		{"RUN_INTERVAL", "0s", "RUN_INTERVAL"},
		{"RUN_DAY_OFFSET", "-1", "RUN_DAY_OFFSET"},
		{"OUTPUT_FORMATS", "csv,xlsx", "OUTPUT_FORMATS"},
		{"OUTPUT_FORMATS", " , ", "OUTPUT_FORMATS"},
		{"OUTPUT_LAYOUT", "daily", "OUTPUT_LAYOUT"},
		{"SQL_DRIVER", "mysql", "SQL_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_SQLDriverRequiresDSN(t *testing.T) {
	t.Setenv("SQL_DRIVER", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL_DSN")
}
