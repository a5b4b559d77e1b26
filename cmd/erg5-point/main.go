// Command erg5-point prints the daily radiation of the grid point nearest to
// a location as "lat,lon,value,distance", distance in km.
//
// Usage:
//
//	erg5-point -date 2023-03-15 11.34 44.49
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/arpae"
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
	file := flag.String("file", "", "local GRIB file to query instead of downloading")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-date YYYY-MM-DD] [-file F] LON LAT\n", os.Args[0])
		flag.PrintDefaults()
	}
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

	lon, lat, err := parseLonLat(flag.Args())
	if err != nil {
		logger.Error("invalid coordinates", "args", flag.Args(), "error", err)
		flag.Usage()
		return exitcode.ConfigError
	}
	day := domain.ReferenceDay(cfg.RunDayOffset)
	if *dateStr != "" {
		if day, err = time.Parse(time.DateOnly, *dateStr); err != nil {
			logger.Error("invalid date", "date", *dateStr, "error", err)
			return exitcode.ConfigError
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics()
	client := arpae.NewClient(cfg.BaseURL, cfg.HTTPTimeout, metrics, logger)
	svc := dump.NewService(cfg, client, nil, metrics, logger)

	res, err := svc.Nearest(ctx, day, *file, lat, lon)
	if err != nil {
		logger.Error("nearest point query failed", "lat", lat, "lon", lon, "error", err)
		return exitcode.For(err)
	}
	fmt.Println(res.Line())
	return exitcode.Success
}

func parseLonLat(args []string) (lon, lat float64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected LON LAT, got %d arguments", len(args))
	}
	if lon, err = strconv.ParseFloat(args[0], 64); err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if lat, err = strconv.ParseFloat(args[1], 64); err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	return lon, lat, nil
}
