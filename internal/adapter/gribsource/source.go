// Package gribsource adapts a GRIB2 byte stream to the pipeline's message
// source.
package gribsource

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/grib2"
)

// Source reads messages from an underlying stream.
type Source struct {
	r      *grib2.Reader
	stream io.Reader
}

// New reads messages from r. The stream is consumed on the first call to
// Next.
func New(r io.Reader) *Source {
	return &Source{stream: r}
}

// Open reads messages from the file at path. Close releases the file.
func Open(path string) (*Source, error) {
	r, err := grib2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grib: %w", err)
	}
	return &Source{r: r}, nil
}

// Next returns the next message, or io.EOF at end of stream.
func (s *Source) Next(ctx context.Context) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.r == nil {
		r, err := grib2.NewReader(s.stream)
		if err != nil {
			return nil, err
		}
		s.r = r
	}
	m, err := s.r.Next()
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Close releases the underlying reader, if any.
func (s *Source) Close() error {
	if s.r == nil {
		return nil
	}
	return s.r.Close()
}
