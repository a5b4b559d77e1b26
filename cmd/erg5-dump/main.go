// Command erg5-dump downloads the ERG5 GRIB file of a day (or reads a local
// one) and writes every known product to the configured outputs.
//
// Usage:
//
//	erg5-dump -date 2023-03-15 -outdir out/
//	erg5-dump -file erg5.202303150000.grib -outdir out/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/arpae"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/objectstore"
	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/dump"
	"github.com/couchcryptid/erg5-etl-service/internal/exitcode"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	dateStr := flag.String("date", "", "reference day (YYYY-MM-DD), default RUN_DAY_OFFSET days ago")
	outdir := flag.String("outdir", "", "output directory, default OUTPUT_DIR")
	file := flag.String("file", "", "local GRIB file to dump instead of downloading")
	runID := flag.String("run-id", "", "run identifier (UUIDv7), generated when empty")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitcode.ConfigError
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	day, err := parseDay(*dateStr, cfg.RunDayOffset)
	if err != nil {
		logger.Error("invalid date", "date", *dateStr, "error", err)
		fmt.Fprintf(os.Stderr, "Usage: date must be in YYYY-MM-DD format\n")
		return exitcode.ConfigError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics()

	var archive dump.Archiver
	if cfg.MinioEndpoint != "" {
		a, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Error("failed to initialize minio client", "error", err)
			return exitcode.StorageError
		}
		archive = a
	}

	client := arpae.NewClient(cfg.BaseURL, cfg.HTTPTimeout, metrics, logger)
	svc := dump.NewService(cfg, client, archive, metrics, logger)

	_, err = svc.Dump(ctx, dump.Request{
		Day:    day,
		File:   *file,
		OutDir: *outdir,
		RunID:  domain.RunID(*runID),
	})
	if err != nil {
		metrics.Runs.WithLabelValues("error").Inc()
	} else {
		metrics.Runs.WithLabelValues("success").Inc()
		metrics.LastSuccessTime.Set(float64(domain.Now().Unix()))
	}
	svc.WriteMetrics()

	if err != nil {
		logger.Error("dump failed", "error", err)
		return exitcode.For(err)
	}
	return exitcode.Success
}

func parseDay(s string, offset int) (time.Time, error) {
	if s == "" {
		return domain.ReferenceDay(offset), nil
	}
	return time.Parse(time.DateOnly, s)
}
