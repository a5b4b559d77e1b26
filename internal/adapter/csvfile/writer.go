// Package csvfile serializes product batches as CSV files with the header
// cellid,date,time,lat,lon,value.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Header is the first row of every file.
var Header = []string{"cellid", "date", "time", "lat", "lon", "value"}

// Writer is a pipeline loader writing one CSV file per message, or one per
// product when the layout is domain.LayoutProduct.
type Writer struct {
	dir    string
	layout domain.Layout
	logger *slog.Logger

	// open files of the product layout, keyed by path
	open map[string]*openFile
}

type openFile struct {
	f *os.File
	w *csv.Writer
}

// NewWriter writes files under dir.
func NewWriter(dir string, layout domain.Layout, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, layout: layout, logger: logger, open: make(map[string]*openFile)}
}

func (w *Writer) Name() string { return "csv" }

// Load writes the records of b in extraction order.
func (w *Writer) Load(_ context.Context, b domain.ProductBatch) error {
	path := domain.OutputPath(w.dir, w.layout, b, "csv")

	if w.layout == domain.LayoutProduct {
		of, err := w.product(path)
		if err != nil {
			return err
		}
		if err := WriteRecords(of.w, b.Records, false); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := WriteRecords(cw, b.Records, true); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.logger.Debug("csv written", "path", path, "records", len(b.Records))
	return nil
}

// product returns the open file of path, creating it with a header on first
// use.
func (w *Writer) product(path string) (*openFile, error) {
	if of, ok := w.open[path]; ok {
		return of, nil
	}
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	of := &openFile{f: f, w: csv.NewWriter(f)}
	if err := of.w.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	w.open[path] = of
	return of, nil
}

// Close flushes and closes the files of the product layout.
func (w *Writer) Close() error {
	var errs []error
	for path, of := range w.open {
		of.w.Flush()
		if err := of.w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", path, err))
		}
		if err := of.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		w.logger.Debug("csv written", "path", path)
	}
	clear(w.open)
	return errors.Join(errs...)
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// WriteRecords writes records to w, preceded by Header when header is true,
// and flushes. Absent cell ids and values are empty fields.
func WriteRecords(w *csv.Writer, records []domain.CellRecord, header bool) error {
	if header {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	for _, r := range records {
		row := []string{
			domain.FormatCellID(r.CellID),
			r.Date,
			r.Time,
			domain.FormatFloat(r.Lat),
			domain.FormatFloat(r.Lon),
			domain.FormatValue(r.Value),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Encode renders records as a complete CSV document.
func Encode(out io.Writer, records []domain.CellRecord) error {
	return WriteRecords(csv.NewWriter(out), records, true)
}
