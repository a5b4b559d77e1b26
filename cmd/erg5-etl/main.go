// Command erg5-etl runs the daily ERG5 dump on a schedule and serves
// health, readiness, and metrics endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/arpae"
	httpadapter "github.com/couchcryptid/erg5-etl-service/internal/adapter/http"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/objectstore"
	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/dump"
	"github.com/couchcryptid/erg5-etl-service/internal/exitcode"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
	"github.com/couchcryptid/erg5-etl-service/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitcode.ConfigError)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
			os.Exit(exitcode.StorageError)
		}
		archive = a
		logger.Info("raw archive enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	} else {
		logger.Info("raw archive disabled")
	}

	client := arpae.NewClient(cfg.BaseURL, cfg.HTTPTimeout, metrics, logger)
	svc := dump.NewService(cfg, client, archive, metrics, logger)
	scheduler := pipeline.NewScheduler(svc.Job(), cfg.RunInterval, cfg.RunDayOffset, clockwork.NewRealClock(), logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		os.Exit(exitcode.For(err))
	}
	logger.Info("shutdown complete")
}
