package grib2

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by accessors of a message that has been closed.
	ErrClosed = errors.New("grib2: message closed")

	// ErrGridTooLarge is returned for messages declaring more than
	// MaxDataPoints points.
	ErrGridTooLarge = errors.New("grib2: grid too large")
)

// FormatError reports a message eccodes could not decode.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("grib2: %s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
