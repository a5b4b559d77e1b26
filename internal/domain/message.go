package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfGrid is returned by a nearest-point query whose target lies
	// outside the message grid.
	ErrOutOfGrid = errors.New("point outside grid")

	// ErrProductNotFound is returned when no message of a stream satisfies the
	// requested signature.
	ErrProductNotFound = errors.New("product not found")

	// ErrKeyNotDefined is returned by metadata accessors for absent keys.
	ErrKeyNotDefined = errors.New("key not defined")
)

// KeyError reports a metadata key that could not be read.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key %q: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Metadata gives typed access to message keys by their eccodes names.
// IsDefined distinguishes an absent key from one holding a value.
type Metadata interface {
	IsDefined(key string) bool
	Long(key string) (int64, error)
	Double(key string) (float64, error)
	String(key string) (string, error)
}

// GridPoint is one (latitude, longitude, raw value) triple of a grid.
type GridPoint struct {
	Lat   float64
	Lon   float64
	Value float64
}

// PointIterator walks the points of a message in source order.
type PointIterator interface {
	Next() bool
	Point() GridPoint
	Err() error
}

// NearestPoint is the raw answer of a nearest-neighbour search. Distance is
// in kilometres.
type NearestPoint struct {
	Lat      float64
	Lon      float64
	Value    float64
	Distance float64
}

// Message is a decoded grid message. It must be closed before the next
// message of the same stream is requested.
type Message interface {
	Metadata
	Points() PointIterator
	// Nearest returns the grid point closest to (lat, lon), or an error
	// wrapping ErrOutOfGrid when the target is outside the grid.
	Nearest(lat, lon float64) (NearestPoint, error)
	Close() error
}
