package grib2

import (
	"fmt"
	"math"
	"strconv"

	codes "github.com/amsokol/go-eccodes"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// EarthRadiusKm is the sphere radius used for distances.
const EarthRadiusKm = 6371.229

// Message is one decoded field. Points come from eccodes in scan order.
type Message struct {
	h      codes.Message
	lats   []float64
	lons   []float64
	values []float64

	minLat, maxLat float64
	minLon, maxLon float64
	closed         bool
}

var _ domain.Message = (*Message)(nil)

func newMessage(h codes.Message, lats, lons, values []float64) *Message {
	m := &Message{
		h: h, lats: lats, lons: lons, values: values,
		minLat: math.Inf(1), maxLat: math.Inf(-1),
		minLon: math.Inf(1), maxLon: math.Inf(-1),
	}
	for k := range lats {
		m.minLat = math.Min(m.minLat, lats[k])
		m.maxLat = math.Max(m.maxLat, lats[k])
		m.minLon = math.Min(m.minLon, lons[k])
		m.maxLon = math.Max(m.maxLon, lons[k])
	}
	return m
}

// IsDefined reports whether eccodes knows key for this message.
func (m *Message) IsDefined(key string) bool {
	if m.closed {
		return false
	}
	_, err := m.h.GetString(key)
	return err == nil
}

func (m *Message) Long(key string) (int64, error) {
	if m.closed {
		return 0, &domain.KeyError{Key: key, Err: ErrClosed}
	}
	v, err := m.h.GetLong(key)
	if err != nil {
		return 0, keyError(key, err)
	}
	return v, nil
}

func (m *Message) Double(key string) (float64, error) {
	if m.closed {
		return 0, &domain.KeyError{Key: key, Err: ErrClosed}
	}
	v, err := m.h.GetDouble(key)
	if err != nil {
		return 0, keyError(key, err)
	}
	return v, nil
}

// String renders a key as text. dataTime is zero padded to HHMM.
func (m *Message) String(key string) (string, error) {
	if m.closed {
		return "", &domain.KeyError{Key: key, Err: ErrClosed}
	}
	if key == "dataTime" {
		v, err := m.h.GetLong(key)
		if err != nil {
			return "", keyError(key, err)
		}
		return fmt.Sprintf("%04d", v), nil
	}
	if key == "dataDate" {
		v, err := m.h.GetLong(key)
		if err != nil {
			return "", keyError(key, err)
		}
		return strconv.FormatInt(v, 10), nil
	}
	v, err := m.h.GetString(key)
	if err != nil {
		return "", keyError(key, err)
	}
	return v, nil
}

func keyError(key string, err error) error {
	return &domain.KeyError{Key: key, Err: fmt.Errorf("%w: %v", domain.ErrKeyNotDefined, err)}
}

// Values returns the decoded values in scan order. Masked points hold
// missingValue.
func (m *Message) Values() []float64 {
	return m.values
}

// Points iterates the grid in scan order.
func (m *Message) Points() domain.PointIterator {
	return &pointIterator{m: m, i: -1}
}

// Nearest returns the grid point with the smallest great-circle distance to
// (lat, lon). Targets outside the grid bounding box yield domain.ErrOutOfGrid.
func (m *Message) Nearest(lat, lon float64) (domain.NearestPoint, error) {
	if m.closed {
		return domain.NearestPoint{}, ErrClosed
	}
	lon, ok := m.contains(lat, lon)
	if !ok {
		return domain.NearestPoint{}, fmt.Errorf("(%g, %g): %w", lat, lon, domain.ErrOutOfGrid)
	}

	best := domain.NearestPoint{Distance: -1}
	for k, v := range m.values {
		d := greatCircle(lat, lon, m.lats[k], m.lons[k])
		if best.Distance < 0 || d < best.Distance {
			best = domain.NearestPoint{Lat: m.lats[k], Lon: m.lons[k], Value: v, Distance: d}
		}
	}
	return best, nil
}

// contains reports whether (lat, lon) lies in the grid box. The returned
// longitude is shifted by whole turns into the grid's longitude range.
func (m *Message) contains(lat, lon float64) (float64, bool) {
	if lat < m.minLat || lat > m.maxLat {
		return lon, false
	}
	for lon < m.minLon {
		lon += 360
	}
	for lon >= m.minLon+360 {
		lon -= 360
	}
	return lon, lon <= m.maxLon
}

// Close releases the eccodes handle. Accessors fail afterwards.
func (m *Message) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.lats, m.lons, m.values = nil, nil, nil
	return m.h.Close()
}

type pointIterator struct {
	m   *Message
	i   int
	err error
}

func (it *pointIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.m.closed {
		it.err = ErrClosed
		return false
	}
	if it.i+1 >= len(it.m.values) {
		return false
	}
	it.i++
	return true
}

func (it *pointIterator) Point() domain.GridPoint {
	return domain.GridPoint{Lat: it.m.lats[it.i], Lon: it.m.lons[it.i], Value: it.m.values[it.i]}
}

func (it *pointIterator) Err() error { return it.err }

func greatCircle(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	p1, p2 := lat1*rad, lat2*rad
	dp := (lat2 - lat1) * rad
	dl := (lon2 - lon1) * rad
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, a)))
}
