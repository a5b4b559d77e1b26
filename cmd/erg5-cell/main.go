// Command erg5-cell downloads the yearly CSV timeseries of one ERG5 cell and
// extracts it into a directory.
//
// Usage:
//
//	erg5-cell -year 2017 19 out/
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

	"github.com/joho/godotenv"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/arpae"
	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/exitcode"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	year := flag.Int("year", domain.Now().Year(), "year of the timeseries")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-year YYYY] CELLID OUTDIR\n", os.Args[0])
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

	if flag.NArg() != 2 {
		flag.Usage()
		return exitcode.ConfigError
	}
	cellID, err := strconv.Atoi(flag.Arg(0))
	if err != nil || cellID <= 0 {
		logger.Error("invalid cell id", "cellid", flag.Arg(0))
		return exitcode.ConfigError
	}
	outdir := flag.Arg(1)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := arpae.NewClient(cfg.BaseURL, cfg.HTTPTimeout, observability.NewMetrics(), logger)
	names, err := client.FetchCellArchive(ctx, cellID, *year, outdir)
	if err != nil {
		logger.Error("cell download failed", "cellid", cellID, "year", *year, "error", err)
		return exitcode.For(err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return exitcode.Success
}
