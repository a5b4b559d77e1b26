package domain

import (
	"fmt"
	"strconv"
)

// fakeMessage is an in-memory Message for tests. Keys hold int64, float64 or
// string values; absent keys are undefined.
type fakeMessage struct {
	keys    map[string]any
	points  []GridPoint
	nearest NearestPoint
	nearErr error
	closed  bool
}

func (m *fakeMessage) IsDefined(key string) bool {
	_, ok := m.keys[key]
	return ok
}

func (m *fakeMessage) Long(key string) (int64, error) {
	switch v := m.keys[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, &KeyError{Key: key, Err: ErrKeyNotDefined}
	default:
		return 0, fmt.Errorf("key %q: not numeric", key)
	}
}

func (m *fakeMessage) Double(key string) (float64, error) {
	switch v := m.keys[key].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case nil:
		return 0, &KeyError{Key: key, Err: ErrKeyNotDefined}
	default:
		return 0, fmt.Errorf("key %q: not numeric", key)
	}
}

func (m *fakeMessage) String(key string) (string, error) {
	switch v := m.keys[key].(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case nil:
		return "", &KeyError{Key: key, Err: ErrKeyNotDefined}
	default:
		return fmt.Sprint(v), nil
	}
}

func (m *fakeMessage) Points() PointIterator {
	return &sliceIterator{points: m.points, pos: -1}
}

func (m *fakeMessage) Nearest(_, _ float64) (NearestPoint, error) {
	return m.nearest, m.nearErr
}

func (m *fakeMessage) Close() error {
	m.closed = true
	return nil
}

type sliceIterator struct {
	points []GridPoint
	pos    int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.points)
}

func (it *sliceIterator) Point() GridPoint { return it.points[it.pos] }

func (it *sliceIterator) Err() error { return nil }

// signatureKeys returns the keys of s as a message key map.
func signatureKeys(s Signature) map[string]any {
	keys := make(map[string]any)
	for _, kv := range s.Keys() {
		keys[kv.Key] = kv.Value
	}
	return keys
}

// boundaryGrid returns the keys of the 2x2 grid used throughout the tests.
func boundaryGrid() map[string]any {
	return map[string]any{
		"longitudeOfFirstGridPointInDegrees": 10.0,
		"latitudeOfFirstGridPointInDegrees":  44.0,
		"Ni":                                 int64(2),
		"Nj":                                 int64(2),
		"iDirectionIncrementInDegrees":       0.1,
		"jDirectionIncrementInDegrees":       0.1,
		"missingValue":                       9999.0,
		"dataDate":                           "20230315",
		"dataTime":                           "0000",
	}
}
