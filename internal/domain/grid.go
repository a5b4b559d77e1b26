package domain

import (
	"fmt"
	"math"
)

// GridDefinition describes a regular latitude/longitude grid.
type GridDefinition struct {
	Lon0    float64
	Lat0    float64
	Ncol    int
	Nrow    int
	LonStep float64
	LatStep float64
}

// GridFromMetadata reads the grid definition keys of a message.
func GridFromMetadata(m Metadata) (GridDefinition, error) {
	var g GridDefinition
	var err error
	if g.Lat0, err = m.Double("latitudeOfFirstGridPointInDegrees"); err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	if g.Lon0, err = m.Double("longitudeOfFirstGridPointInDegrees"); err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	ni, err := m.Long("Ni")
	if err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	nj, err := m.Long("Nj")
	if err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	g.Ncol, g.Nrow = int(ni), int(nj)
	if g.LatStep, err = m.Double("jDirectionIncrementInDegrees"); err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	if g.LonStep, err = m.Double("iDirectionIncrementInDegrees"); err != nil {
		return g, fmt.Errorf("grid definition: %w", err)
	}
	if g.LonStep == 0 || g.LatStep == 0 {
		return g, fmt.Errorf("grid definition: zero increment (di=%v, dj=%v)", g.LonStep, g.LatStep)
	}
	return g, nil
}

// stepEpsilon absorbs the representation error of decimal degrees, so that
// lon0 + k*step maps back to index k rather than k-1.
const stepEpsilon = 1e-6

// gridIndex divides offset by step and truncates toward zero.
func gridIndex(offset, step float64) int {
	q := offset / step
	if r := math.Round(q); math.Abs(q-r) < stepEpsilon {
		q = r
	}
	return int(q)
}

// CellID maps a point to its ERG5 cell identifier. The second result is
// false when the point lies outside the grid.
func (g GridDefinition) CellID(lon, lat float64) (int, bool) {
	col := gridIndex(lon-g.Lon0, g.LonStep)
	row := gridIndex(lat-g.Lat0, g.LatStep)
	if col < 0 || col >= g.Ncol || row < 0 || row >= g.Nrow {
		return 0, false
	}
	return g.Nrow*col + g.Nrow - row, true
}
