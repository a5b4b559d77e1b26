package pipeline

import (
	"fmt"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Extractor classifies a message and extracts its records.
type Extractor struct {
	registry domain.Registry
}

// NewExtractor creates an Extractor over registry.
func NewExtractor(registry domain.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Transform returns the records of m. ok is false when m matches no
// product; that is not an error.
func (e *Extractor) Transform(m domain.Message) (batch domain.ProductBatch, ok bool, err error) {
	name, ok := e.registry.Classify(m)
	if !ok {
		return domain.ProductBatch{}, false, nil
	}
	batch, err = domain.Extract(m, name)
	if err != nil {
		return domain.ProductBatch{}, false, fmt.Errorf("extract %s: %w", name, err)
	}
	return batch, true, nil
}
