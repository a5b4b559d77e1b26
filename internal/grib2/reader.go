// Package grib2 reads GRIB edition 2 messages through the eccodes library.
// Metadata is exposed under eccodes key names and values are expanded with
// masked points set to the message's missingValue.
package grib2

import (
	"errors"
	"fmt"
	"io"
	"os"

	codes "github.com/amsokol/go-eccodes"
	cio "github.com/amsokol/go-eccodes/io"
)

// MaxDataPoints bounds the grid of a single message. Larger grids are
// rejected before their values are expanded.
const MaxDataPoints = 1 << 22

// Reader reads consecutive messages from a GRIB file.
type Reader struct {
	f     cio.File
	file  codes.File
	spill string
}

// Open reads messages from the file at path.
func Open(path string) (*Reader, error) {
	f, err := cio.OpenFile(path, "rb")
	if err != nil {
		return nil, fmt.Errorf("open grib %s: %w", path, err)
	}
	file, err := codes.OpenFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open grib %s: %w", path, err)
	}
	return &Reader{f: f, file: file}, nil
}

// NewReader copies r to a temporary file and reads messages from it.
// eccodes reads from files only.
func NewReader(r io.Reader) (*Reader, error) {
	tmp, err := os.CreateTemp("", "erg5-*.grib")
	if err != nil {
		return nil, fmt.Errorf("spill grib stream: %w", err)
	}
	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("spill grib stream: %w", err)
	}

	rd, err := Open(tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	rd.spill = tmp.Name()
	return rd, nil
}

// Next decodes the next message. It returns io.EOF when the file holds no
// further message and a *FormatError for input eccodes rejects.
func (r *Reader) Next() (*Message, error) {
	h, err := r.file.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &FormatError{Op: "read message", Err: err}
	}

	n, err := h.GetLong("numberOfDataPoints")
	if err != nil {
		_ = h.Close()
		return nil, &FormatError{Op: "numberOfDataPoints", Err: err}
	}
	if n <= 0 || n > MaxDataPoints {
		_ = h.Close()
		return nil, &FormatError{Op: "numberOfDataPoints", Err: fmt.Errorf("%w: %d points", ErrGridTooLarge, n)}
	}

	lats, lons, values, err := h.Data()
	if err != nil {
		_ = h.Close()
		return nil, &FormatError{Op: "decode values", Err: err}
	}
	if int64(len(values)) != n || len(lats) != len(values) || len(lons) != len(values) {
		_ = h.Close()
		return nil, &FormatError{Op: "decode values", Err: fmt.Errorf("%d values for %d points", len(values), n)}
	}
	return newMessage(h, lats, lons, values), nil
}

// Close releases the file and removes the spill copy, if any.
func (r *Reader) Close() error {
	r.file.Close()
	r.f.Close()
	if r.spill != "" {
		return os.Remove(r.spill)
	}
	return nil
}
