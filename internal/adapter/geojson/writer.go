// Package geojson serializes product batches as GeoJSON FeatureCollections,
// one Point feature per record.
package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Writer is a pipeline loader writing one .json document per message, or one
// per product when the layout is domain.LayoutProduct.
type Writer struct {
	dir    string
	layout domain.Layout
	logger *slog.Logger

	// collections of the product layout, written on Close
	pending map[string]*geojson.FeatureCollection
	order   []string
}

// NewWriter writes files under dir.
func NewWriter(dir string, layout domain.Layout, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, layout: layout, logger: logger, pending: make(map[string]*geojson.FeatureCollection)}
}

func (w *Writer) Name() string { return "geojson" }

// Load converts the records of b to features.
func (w *Writer) Load(_ context.Context, b domain.ProductBatch) error {
	path := domain.OutputPath(w.dir, w.layout, b, "json")

	if w.layout == domain.LayoutProduct {
		fc, ok := w.pending[path]
		if !ok {
			fc = geojson.NewFeatureCollection()
			w.pending[path] = fc
			w.order = append(w.order, path)
		}
		appendFeatures(fc, b.Records)
		return nil
	}

	if err := w.write(path, FeatureCollection(b.Records)); err != nil {
		return err
	}
	w.logger.Debug("geojson written", "path", path, "records", len(b.Records))
	return nil
}

// Close writes the accumulated collections of the product layout.
func (w *Writer) Close() error {
	var errs []error
	for _, path := range w.order {
		fc := w.pending[path]
		if err := w.write(path, fc); err != nil {
			errs = append(errs, err)
			continue
		}
		w.logger.Debug("geojson written", "path", path, "records", len(fc.Features))
	}
	clear(w.pending)
	w.order = nil
	return errors.Join(errs...)
}

func (w *Writer) write(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FeatureCollection converts records to features in extraction order.
// Geometry is [lon, lat]; properties are cellid, date, time and value, with
// null for absent cell ids and values.
func FeatureCollection(records []domain.CellRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	appendFeatures(fc, records)
	return fc
}

func appendFeatures(fc *geojson.FeatureCollection, records []domain.CellRecord) {
	for _, r := range records {
		f := geojson.NewFeature(orb.Point{r.Lon, r.Lat})
		f.Properties["cellid"] = nil
		if r.CellID != nil {
			f.Properties["cellid"] = *r.CellID
		}
		f.Properties["date"] = r.Date
		f.Properties["time"] = r.Time
		f.Properties["value"] = nil
		if r.Value != nil {
			f.Properties["value"] = *r.Value
		}
		fc.Append(f)
	}
}
