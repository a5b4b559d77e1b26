// Package dump wires the download client, the raw archive and the output
// loaders around a pipeline run. Every command goes through a Service.
package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/csvfile"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/geojson"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/gribsource"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/shapefile"
	"github.com/couchcryptid/erg5-etl-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
	"github.com/couchcryptid/erg5-etl-service/internal/pipeline"
)

// Fetcher downloads the GRIB file of a day into dir.
type Fetcher interface {
	FetchGrib(ctx context.Context, day time.Time, dir string) (string, error)
}

// Archiver stores the raw GRIB file of a run.
type Archiver interface {
	Put(ctx context.Context, day time.Time, runID domain.RunID, r io.Reader) (string, error)
}

// Request selects the day to process. File, when set, is read instead of
// downloading the day. OutDir defaults to the configured output directory.
type Request struct {
	Day    time.Time
	File   string
	OutDir string
	RunID  domain.RunID
}

// Service runs dumps and single-point queries.
type Service struct {
	cfg      *config.Config
	fetcher  Fetcher
	archive  Archiver
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a Service. archive may be nil to disable archiving.
func NewService(cfg *config.Config, fetcher Fetcher, archive Archiver, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		fetcher:  fetcher,
		archive:  archive,
		pipeline: pipeline.New(domain.DefaultRegistry(), logger, metrics),
		metrics:  metrics,
		logger:   logger,
	}
}

// Dump fetches (or opens) the GRIB file of req.Day and writes every
// classified product to the configured outputs.
func (s *Service) Dump(ctx context.Context, req Request) (pipeline.Summary, error) {
	if req.RunID == "" {
		id, err := domain.NewRunID()
		if err != nil {
			return pipeline.Summary{}, err
		}
		req.RunID = id
	}
	if err := req.RunID.Validate(); err != nil {
		return pipeline.Summary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = s.cfg.OutputDir
	}
	logger := s.logger.With("run_id", req.RunID, "day", req.Day.Format(time.DateOnly))

	path, err := s.source(ctx, req.Day, req.File)
	if err != nil {
		return pipeline.Summary{}, err
	}
	if err := s.archiveRaw(ctx, req, path, logger); err != nil {
		return pipeline.Summary{}, err
	}

	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return pipeline.Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	loaders, err := s.Loaders(ctx, req.OutDir, req.RunID)
	if err != nil {
		return pipeline.Summary{}, err
	}

	src, err := gribsource.Open(path)
	if err != nil {
		closeAll(loaders)
		return pipeline.Summary{}, err
	}
	defer src.Close()

	sum, err := s.pipeline.Run(ctx, src, loaders...)
	if err != nil {
		return sum, fmt.Errorf("dump %s: %w", path, err)
	}
	logger.Info("dump complete",
		"messages", sum.Messages,
		"skipped", sum.Skipped,
		"records", sum.Records,
		"missing", sum.Missing,
		"out_of_grid", sum.OutOfGrid,
		"outdir", req.OutDir,
	)
	return sum, nil
}

// Job adapts Dump to the scheduler, giving every run a fresh run id.
func (s *Service) Job() pipeline.Job {
	return func(ctx context.Context, day time.Time) error {
		_, err := s.Dump(ctx, Request{Day: day})
		return err
	}
}

// Nearest returns the daily radiation value closest to (lat, lon) on day.
func (s *Service) Nearest(ctx context.Context, day time.Time, file string, lat, lon float64) (domain.NearestPointResult, error) {
	path, err := s.source(ctx, day, file)
	if err != nil {
		return domain.NearestPointResult{}, err
	}
	src, err := gribsource.Open(path)
	if err != nil {
		return domain.NearestPointResult{}, err
	}
	defer src.Close()

	return pipeline.FindNearest(ctx, src, domain.RadiationSignature(), lat, lon)
}

// WriteMetrics dumps the metrics to the configured textfile, if any.
func (s *Service) WriteMetrics() {
	if s.cfg.MetricsTextfile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		s.logger.Warn("failed to write metrics textfile", "path", s.cfg.MetricsTextfile, "error", err)
	}
}

// Loaders builds one loader per configured output. On error the loaders
// already built are closed.
func (s *Service) Loaders(ctx context.Context, outdir string, runID domain.RunID) ([]pipeline.Loader, error) {
	var loaders []pipeline.Loader
	for _, format := range s.cfg.OutputFormats {
		switch format {
		case config.FormatCSV:
			loaders = append(loaders, csvfile.NewWriter(outdir, s.cfg.OutputLayout, s.logger))
		case config.FormatGeoJSON:
			loaders = append(loaders, geojson.NewWriter(outdir, s.cfg.OutputLayout, s.logger))
		case config.FormatShapefile:
			loaders = append(loaders, shapefile.NewWriter(outdir, s.cfg.OutputLayout, s.logger))
		default:
			closeAll(loaders)
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}
	if s.cfg.KafkaEnabled {
		loaders = append(loaders, kafka.NewWriter(s.cfg, runID, s.logger))
	}
	if s.cfg.SQLDriver != "" {
		store, err := sqlstore.Open(ctx, s.cfg.SQLDriver, s.cfg.SQLDSN, runID, s.cfg.BatchSize, s.logger)
		if err != nil {
			closeAll(loaders)
			return nil, err
		}
		loaders = append(loaders, store)
	}
	return loaders, nil
}

func (s *Service) source(ctx context.Context, day time.Time, file string) (string, error) {
	if file != "" {
		return file, nil
	}
	path, err := s.fetcher.FetchGrib(ctx, day, s.cfg.DownloadDir)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	return path, nil
}

func (s *Service) archiveRaw(ctx context.Context, req Request, path string, logger *slog.Logger) error {
	if s.archive == nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()

	key, err := s.archive.Put(ctx, req.Day, req.RunID, f)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	logger.Info("raw file archived", "key", key)
	return nil
}

func closeAll(loaders []pipeline.Loader) {
	for _, l := range loaders {
		_ = l.Close()
	}
}
