package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func radiationMessage(p NearestPoint, err error) *fakeMessage {
	keys := signatureKeys(RadiationSignature())
	for k, v := range boundaryGrid() {
		keys[k] = v
	}
	return &fakeMessage{keys: keys, nearest: p, nearErr: err}
}

func TestNearest_MissingValueRendersEmpty(t *testing.T) {
	msg := radiationMessage(NearestPoint{Lat: 44.5, Lon: 11.3, Value: 9999, Distance: 0.03}, nil)

	res, err := Nearest(msg, 44.5, 11.3)
	require.NoError(t, err)
	assert.Nil(t, res.Value)
	assert.Equal(t, "44.5,11.3,,0.03", res.Line())
}

func TestNearest_Value(t *testing.T) {
	msg := radiationMessage(NearestPoint{Lat: 44.5, Lon: 11.25, Value: 21.75, Distance: 1.2}, nil)

	res, err := Nearest(msg, 44.49, 11.26)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, 21.75, *res.Value)
	assert.Equal(t, "44.5,11.25,21.75,1.2", res.Line())
}

func TestNearest_OutOfGridPropagates(t *testing.T) {
	msg := radiationMessage(NearestPoint{}, fmt.Errorf("lat 50, lon 20: %w", ErrOutOfGrid))

	_, err := Nearest(msg, 50, 20)
	assert.ErrorIs(t, err, ErrOutOfGrid)
}

func TestNearest_OtherErrorsWrapped(t *testing.T) {
	msg := radiationMessage(NearestPoint{}, errors.New("closed"))

	_, err := Nearest(msg, 44, 10)
	assert.ErrorContains(t, err, "nearest point: closed")
	assert.NotErrorIs(t, err, ErrOutOfGrid)
}
