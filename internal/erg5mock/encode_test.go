package erg5mock

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantField(v float64) EncodeOptions {
	return EncodeOptions{
		Centre:    arpaeCentre,
		Reference: time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC),
		Ni:        3, Nj: 2,
		La1: 44.5, Lo1: 9.5,
		Di: 0.5, Dj: 0.5,
		Product:      temperature2m(0, 1),
		Values:       []float64{v, v, v, v, v, v},
		MissingValue: MissingValue,
		DecimalScale: 2,
	}
}

// sections splits an encoded message into its numbered sections.
func sections(t *testing.T, b []byte) map[int][]byte {
	t.Helper()
	require.Equal(t, "GRIB", string(b[:4]))
	require.Equal(t, uint64(len(b)), binary.BigEndian.Uint64(b[8:16]))
	require.Equal(t, "7777", string(b[len(b)-4:]))

	out := map[int][]byte{}
	for pos := indicatorLen; pos < len(b)-4; {
		n := int(binary.BigEndian.Uint32(b[pos : pos+4]))
		out[int(b[pos+4])] = b[pos : pos+n]
		pos += n
	}
	return out
}

func TestEncode_ConstantFieldHasNoPackedData(t *testing.T) {
	b, err := Encode(constantField(7))
	require.NoError(t, err)

	s := sections(t, b)
	assert.Equal(t, byte(0), s[5][19], "bitsPerValue")
	assert.Len(t, s[7], 5)
	assert.Equal(t, byte(255), s[6][5], "no bitmap")
}

func TestEncode_BitmapMasksMissing(t *testing.T) {
	opts := constantField(1)
	opts.Values = []float64{-3.25, MissingValue, 0, 12.5, MissingValue, 273.15}
	b, err := Encode(opts)
	require.NoError(t, err)

	s := sections(t, b)
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(s[5][5:9]), "numberOfValues")
	assert.Equal(t, byte(16), s[5][19])
	assert.Equal(t, byte(0), s[6][5])
	assert.Equal(t, byte(0b10110100), s[6][6])
	assert.Len(t, s[7], 5+4*2)
}

func TestEncode_GridGeometry(t *testing.T) {
	opts := constantField(1)
	opts.ScanningMode = 0x40
	opts.La1 = 44.0
	b, err := Encode(opts)
	require.NoError(t, err)

	g := sections(t, b)[3]
	assert.Equal(t, uint32(6), binary.BigEndian.Uint32(g[6:10]))
	assert.Equal(t, uint32(44_500_000), binary.BigEndian.Uint32(g[55:59]), "la2")
	assert.Equal(t, uint32(10_500_000), binary.BigEndian.Uint32(g[59:63]), "lo2")
	assert.Equal(t, byte(0x40), g[71])
}

func TestEncode_Validation(t *testing.T) {
	opts := constantField(1)
	opts.Values = opts.Values[:3]
	_, err := Encode(opts)
	require.Error(t, err)

	opts = constantField(1)
	opts.Product.Template = 11
	_, err = Encode(opts)
	require.Error(t, err)

	opts = constantField(1)
	opts.BitsPerValue = 40
	_, err = Encode(opts)
	require.Error(t, err)
}

func TestPutS32_SignMagnitude(t *testing.T) {
	b := make([]byte, 4)
	putS32(b, -1500000)
	assert.Equal(t, uint32(1500000|0x80000000), binary.BigEndian.Uint32(b))
	putS16(b, -3)
	assert.Equal(t, uint16(0x8003), binary.BigEndian.Uint16(b[:2]))
	assert.Equal(t, byte(0x85), putS8(-5))
}
