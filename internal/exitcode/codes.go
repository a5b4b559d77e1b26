// Package exitcode defines the process exit codes shared by the ERG5
// commands, so schedulers can tell retryable failures from permanent ones.
package exitcode

import (
	"errors"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/grib2"
)

const (
	// Success - run completed
	Success = 0

	// ConfigError - missing or invalid flags or environment
	// Don't retry: fix the config first
	ConfigError = 1

	// NetworkError - download failed or the server answered with an error
	// Retry with backoff
	NetworkError = 2

	// StorageError - writing outputs or uploading the raw file failed
	// Retry with backoff
	StorageError = 4

	// DataError - the GRIB stream could not be decoded
	// Don't retry: investigate the file
	DataError = 5

	// ProductNotFound - no message matched the requested product
	ProductNotFound = 6

	// OutOfGrid - the requested point lies outside the grid
	OutOfGrid = 7
)

// For maps a run error to its exit code. Errors it does not recognise are
// reported as StorageError, the only other failure a run can produce.
func For(err error) int {
	var fe *grib2.FormatError
	var ne NetworkErr
	switch {
	case err == nil:
		return Success
	case errors.Is(err, domain.ErrProductNotFound):
		return ProductNotFound
	case errors.Is(err, domain.ErrOutOfGrid):
		return OutOfGrid
	case errors.As(err, &fe):
		return DataError
	case errors.As(err, &ne) && ne.Network():
		return NetworkError
	default:
		return StorageError
	}
}

// NetworkErr is implemented by errors raised while fetching remote data.
type NetworkErr interface {
	error
	Network() bool
}
