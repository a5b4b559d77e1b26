package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
)

// MessageSource yields decoded messages in stream order. Next returns io.EOF
// when the stream is exhausted.
type MessageSource interface {
	Next(ctx context.Context) (domain.Message, error)
}

// Loader writes product batches to one destination.
type Loader interface {
	// Name identifies the loader in logs and metrics.
	Name() string
	Load(ctx context.Context, batch domain.ProductBatch) error
	// Close flushes buffered output. It is called once at the end of a run.
	Close() error
}

// Summary counts what a run processed.
type Summary struct {
	Messages  int
	Skipped   int
	Records   int
	Missing   int
	OutOfGrid int
	Products  map[string]int
}

// Pipeline orchestrates the read-classify-extract-load loop over one stream.
type Pipeline struct {
	extractor *Extractor
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline classifying messages against registry.
func New(registry domain.Registry, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: NewExtractor(registry),
		logger:    logger,
		metrics:   metrics,
	}
}

// Run reads src until io.EOF. Each classified message is extracted and
// handed to every loader before the next message is read; unclassified
// messages are skipped. Decode and load failures stop the run. Loaders are
// closed before Run returns.
func (p *Pipeline) Run(ctx context.Context, src MessageSource, loaders ...Loader) (sum Summary, err error) {
	start := time.Now()
	sum.Products = make(map[string]int)
	defer func() {
		err = errors.Join(err, closeLoaders(loaders))
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		m, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read message: %w", err)
		}
		sum.Messages++
		p.metrics.MessagesRead.Inc()

		batch, ok, err := p.extractor.Transform(m)
		if cerr := m.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close message: %w", cerr)
		}
		if err != nil {
			return sum, err
		}
		if !ok {
			sum.Skipped++
			p.metrics.MessagesSkipped.Inc()
			p.logger.Debug("message skipped, no product matched", "message", sum.Messages)
			continue
		}

		if err := p.load(ctx, batch, loaders); err != nil {
			return sum, err
		}
		p.record(&sum, batch)
	}

	p.logger.Info("run complete",
		"messages", sum.Messages,
		"skipped", sum.Skipped,
		"records", sum.Records,
		"missing", sum.Missing,
		"out_of_grid", sum.OutOfGrid,
	)
	return sum, nil
}

func (p *Pipeline) load(ctx context.Context, batch domain.ProductBatch, loaders []Loader) error {
	for _, l := range loaders {
		if err := l.Load(ctx, batch); err != nil {
			p.metrics.LoadErrors.WithLabelValues(l.Name()).Inc()
			return fmt.Errorf("load %s %s_%s_%s: %w", l.Name(), batch.Product, batch.Date, batch.Time, err)
		}
	}
	p.logger.Info("product batch loaded",
		"product", batch.Product,
		"data_date", batch.Date,
		"data_time", batch.Time,
		"records", len(batch.Records),
	)
	return nil
}

func (p *Pipeline) record(sum *Summary, batch domain.ProductBatch) {
	sum.Products[batch.Product]++
	sum.Records += len(batch.Records)
	sum.Missing += batch.Missing
	sum.OutOfGrid += batch.OutOfGrid

	p.metrics.MessagesClassified.WithLabelValues(batch.Product).Inc()
	p.metrics.RecordsExtracted.WithLabelValues(batch.Product).Add(float64(len(batch.Records)))
	p.metrics.MissingValues.WithLabelValues(batch.Product).Add(float64(batch.Missing))
	p.metrics.OutOfGridPoints.WithLabelValues(batch.Product).Add(float64(batch.OutOfGrid))
}

func closeLoaders(loaders []Loader) error {
	var errs []error
	for _, l := range loaders {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FindNearest scans src for the first message matching sig and queries the
// grid point nearest to (lat, lon). It returns domain.ErrProductNotFound when
// no message matches.
func FindNearest(ctx context.Context, src MessageSource, sig domain.Signature, lat, lon float64) (domain.NearestPointResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.NearestPointResult{}, err
		}
		m, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return domain.NearestPointResult{}, fmt.Errorf("%s: %w", sig.Name(), domain.ErrProductNotFound)
		}
		if err != nil {
			return domain.NearestPointResult{}, fmt.Errorf("read message: %w", err)
		}
		if !sig.Matches(m) {
			if err := m.Close(); err != nil {
				return domain.NearestPointResult{}, fmt.Errorf("close message: %w", err)
			}
			continue
		}

		res, err := domain.Nearest(m, lat, lon)
		if cerr := m.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close message: %w", cerr)
		}
		return res, err
	}
}
