package domain

import (
	"path/filepath"
	"strings"
)

// Layout selects how file serializers name their outputs.
type Layout string

const (
	// LayoutMessage writes one file per message: <product>_<date>_<time>.<ext>.
	LayoutMessage Layout = "message"
	// LayoutProduct accumulates every message of a product into <product>.<ext>.
	LayoutProduct Layout = "product"
)

// OutputPath returns the file a batch is written to under dir.
func OutputPath(dir string, layout Layout, b ProductBatch, ext string) string {
	name := b.Product
	if layout != LayoutProduct {
		name = strings.Join([]string{b.Product, b.Date, b.Time}, "_")
	}
	return filepath.Join(dir, name+"."+ext)
}
