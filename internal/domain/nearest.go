package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NearestPointResult is the answer to a single-point query. Value is nil when
// the nearest grid point holds the missing-value sentinel.
type NearestPointResult struct {
	Lat      float64
	Lon      float64
	Value    *float64
	Distance float64
}

// Nearest finds the grid point of m closest to (lat, lon). Land/sea masking
// is not applied and only one point is returned. An out-of-grid target
// yields an error wrapping ErrOutOfGrid.
func Nearest(m Message, lat, lon float64) (NearestPointResult, error) {
	missing, err := m.Double("missingValue")
	if err != nil {
		return NearestPointResult{}, fmt.Errorf("missing value: %w", err)
	}
	p, err := m.Nearest(lat, lon)
	if err != nil {
		if errors.Is(err, ErrOutOfGrid) {
			return NearestPointResult{}, err
		}
		return NearestPointResult{}, fmt.Errorf("nearest point: %w", err)
	}
	res := NearestPointResult{Lat: p.Lat, Lon: p.Lon, Distance: p.Distance}
	if p.Value != missing {
		v := p.Value
		res.Value = &v
	}
	return res, nil
}

// Line renders the result as "lat,lon,value,distance" with an empty value
// field when the value is missing.
func (r NearestPointResult) Line() string {
	value := ""
	if r.Value != nil {
		value = FormatFloat(*r.Value)
	}
	return strings.Join([]string{
		FormatFloat(r.Lat),
		FormatFloat(r.Lon),
		value,
		FormatFloat(r.Distance),
	}, ",")
}
