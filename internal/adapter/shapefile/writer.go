// Package shapefile serializes product batches as ESRI point shapefiles
// with a cellid, date, time and value attribute table.
package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Attribute columns, in table order.
const (
	fieldCellID = iota
	fieldDate
	fieldTime
	fieldValue
)

var fields = []shp.Field{
	shp.NumberField("cellid", 10),
	shp.StringField("date", 8),
	shp.StringField("time", 4),
	shp.FloatField("value", 18, 6),
}

// Writer is a pipeline loader writing one .shp (with .shx and .dbf) per
// message, or one per product when the layout is domain.LayoutProduct.
type Writer struct {
	dir    string
	layout domain.Layout
	logger *slog.Logger

	open map[string]*shp.Writer
}

// NewWriter writes files under dir.
func NewWriter(dir string, layout domain.Layout, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, layout: layout, logger: logger, open: make(map[string]*shp.Writer)}
}

func (w *Writer) Name() string { return "shapefile" }

// Load writes one point per record. Absent cell ids and values are left
// blank in the attribute table.
func (w *Writer) Load(_ context.Context, b domain.ProductBatch) error {
	path := domain.OutputPath(w.dir, w.layout, b, "shp")

	sw, ok := w.open[path]
	if !ok {
		var err error
		if sw, err = create(path); err != nil {
			return err
		}
	}
	if err := writeRecords(sw, b.Records); err != nil {
		sw.Close()
		delete(w.open, path)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if w.layout == domain.LayoutProduct {
		w.open[path] = sw
		return nil
	}
	sw.Close()
	w.logger.Debug("shapefile written", "path", path, "records", len(b.Records))
	return nil
}

// Close finalizes the shapefiles of the product layout.
func (w *Writer) Close() error {
	for path, sw := range w.open {
		sw.Close()
		w.logger.Debug("shapefile written", "path", path)
	}
	clear(w.open)
	return nil
}

func create(path string) (*shp.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	sw, err := shp.Create(path, shp.POINT)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := sw.SetFields(fields); err != nil {
		sw.Close()
		return nil, fmt.Errorf("set fields of %s: %w", path, err)
	}
	return sw, nil
}

func writeRecords(sw *shp.Writer, records []domain.CellRecord) error {
	for _, r := range records {
		row := int(sw.Write(&shp.Point{X: r.Lon, Y: r.Lat}))

		attrs := map[int]any{
			fieldDate: r.Date,
			fieldTime: r.Time,
		}
		if r.CellID != nil {
			attrs[fieldCellID] = *r.CellID
		}
		if r.Value != nil {
			attrs[fieldValue] = *r.Value
		}
		for field, v := range attrs {
			if err := sw.WriteAttribute(row, field, v); err != nil {
				return fmt.Errorf("record %d field %s: %w", row, fieldName(field), err)
			}
		}
	}
	return nil
}

func fieldName(i int) string {
	return strings.TrimRight(string(fields[i].Name[:]), "\x00")
}
