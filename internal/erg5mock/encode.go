package erg5mock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// MissingValue is the value eccodes reports for points masked by a bitmap.
const MissingValue = 9999

const indicatorLen = 16

// Product describes section 4. Template 8 adds a statistical process over
// LengthOfTimeRange units starting at the reference time.
type Product struct {
	Template                   int
	ParameterCategory          int
	ParameterNumber            int
	TypeOfGeneratingProcess    int
	IndicatorOfUnitOfTimeRange int
	ForecastTime               int

	TypeOfFirstFixedSurface        int
	ScaleFactorOfFirstFixedSurface int
	ScaledValueOfFirstFixedSurface int
	// TypeOfSecondFixedSurface 255 leaves the second surface missing.
	TypeOfSecondFixedSurface int

	TypeOfStatisticalProcessing int
	IndicatorOfUnitForTimeRange int
	LengthOfTimeRange           int
}

// EncodeOptions describes a single-field message on a regular lat/lon grid.
type EncodeOptions struct {
	Discipline          int
	Centre              int
	Reference           time.Time
	TypeOfProcessedData int

	Ni, Nj       int
	La1, Lo1     float64
	Di, Dj       float64
	ScanningMode byte

	Product Product

	// Values are in scan order. Entries equal to MissingValue are masked by
	// a bitmap.
	Values       []float64
	MissingValue float64
	DecimalScale int
	// BitsPerValue defaults to 16. Constant fields are written with zero
	// bits and an empty data section.
	BitsPerValue int
}

// Encode builds a GRIB2 message (simple packing, template 5.0) from opts.
func Encode(opts EncodeOptions) ([]byte, error) {
	if opts.Ni <= 0 || opts.Nj <= 0 {
		return nil, fmt.Errorf("erg5mock: empty grid %dx%d", opts.Ni, opts.Nj)
	}
	if len(opts.Values) != opts.Ni*opts.Nj {
		return nil, fmt.Errorf("erg5mock: %d values for %dx%d grid", len(opts.Values), opts.Ni, opts.Nj)
	}
	if opts.Product.Template != 0 && opts.Product.Template != 8 {
		return nil, fmt.Errorf("erg5mock: product template %d is not supported", opts.Product.Template)
	}
	bits := opts.BitsPerValue
	if bits == 0 {
		bits = 16
	}
	if bits < 0 || bits > 32 {
		return nil, fmt.Errorf("erg5mock: %d bits per value is not supported", bits)
	}

	sections := [][]byte{
		identificationSection(opts),
		gridSection(opts),
		productSection(opts),
	}
	rep, bitmap, data, err := packValues(opts, bits)
	if err != nil {
		return nil, err
	}
	sections = append(sections, rep, bitmap, data)

	total := indicatorLen + 4
	for _, s := range sections {
		total += len(s)
	}
	out := make([]byte, 0, total)
	head := make([]byte, indicatorLen)
	copy(head, "GRIB")
	head[6] = byte(opts.Discipline)
	head[7] = 2
	binary.BigEndian.PutUint64(head[8:16], uint64(total))
	out = append(out, head...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return append(out, "7777"...), nil
}

func newSection(num, length int) []byte {
	s := make([]byte, length)
	putU32(s[0:4], int64(length))
	s[4] = byte(num)
	return s
}

func identificationSection(o EncodeOptions) []byte {
	s := newSection(1, 21)
	t := o.Reference.UTC()
	putU16(s[5:7], int64(o.Centre))
	s[9] = 2
	s[11] = 1
	putU16(s[12:14], int64(t.Year()))
	s[14] = byte(t.Month())
	s[15] = byte(t.Day())
	s[16] = byte(t.Hour())
	s[17] = byte(t.Minute())
	s[18] = byte(t.Second())
	s[20] = byte(o.TypeOfProcessedData)
	return s
}

func degreesToMicro(v float64) int64 { return int64(math.Round(v * 1e6)) }

// lastPoint returns the coordinates of the final point in scan order.
func lastPoint(o EncodeOptions) (lat, lon float64) {
	lon = o.Lo1 + float64(o.Ni-1)*o.Di
	if o.ScanningMode&0x80 != 0 {
		lon = o.Lo1 - float64(o.Ni-1)*o.Di
	}
	lat = o.La1 - float64(o.Nj-1)*o.Dj
	if o.ScanningMode&0x40 != 0 {
		lat = o.La1 + float64(o.Nj-1)*o.Dj
	}
	return lat, lon
}

func gridSection(o EncodeOptions) []byte {
	s := newSection(3, 72)
	putU32(s[6:10], int64(o.Ni*o.Nj))
	s[14] = 6
	putU32(s[30:34], int64(o.Ni))
	putU32(s[34:38], int64(o.Nj))
	putU32(s[42:46], -1)

	lat2, lon2 := lastPoint(o)
	putS32(s[46:50], degreesToMicro(o.La1))
	putS32(s[50:54], degreesToMicro(o.Lo1))
	s[54] = 0x30
	putS32(s[55:59], degreesToMicro(lat2))
	putS32(s[59:63], degreesToMicro(lon2))
	putU32(s[63:67], degreesToMicro(o.Di))
	putU32(s[67:71], degreesToMicro(o.Dj))
	s[71] = o.ScanningMode
	return s
}

func productSection(o EncodeOptions) []byte {
	p := o.Product
	length := 34
	if p.Template == 8 {
		length = 58
	}
	s := newSection(4, length)
	putU16(s[7:9], int64(p.Template))
	s[9] = byte(p.ParameterCategory)
	s[10] = byte(p.ParameterNumber)
	s[11] = byte(p.TypeOfGeneratingProcess)
	s[17] = byte(p.IndicatorOfUnitOfTimeRange)
	putS32(s[18:22], int64(p.ForecastTime))
	s[22] = byte(p.TypeOfFirstFixedSurface)
	s[23] = putS8(int64(p.ScaleFactorOfFirstFixedSurface))
	putS32(s[24:28], int64(p.ScaledValueOfFirstFixedSurface))
	s[28] = byte(p.TypeOfSecondFixedSurface)
	if p.TypeOfSecondFixedSurface == 255 {
		s[29] = 0xff
		putU32(s[30:34], -1)
	}
	if p.Template != 8 {
		return s
	}

	end := o.Reference.UTC().Add(timeRange(p.IndicatorOfUnitForTimeRange, p.LengthOfTimeRange))
	putU16(s[34:36], int64(end.Year()))
	s[36] = byte(end.Month())
	s[37] = byte(end.Day())
	s[38] = byte(end.Hour())
	s[39] = byte(end.Minute())
	s[40] = byte(end.Second())
	s[41] = 1
	s[46] = byte(p.TypeOfStatisticalProcessing)
	s[47] = 2
	s[48] = byte(p.IndicatorOfUnitForTimeRange)
	putU32(s[49:53], int64(p.LengthOfTimeRange))
	s[53] = 255
	return s
}

// timeRange converts a code table 4.4 unit and count to a duration. Units
// other than minute, hour and day are treated as hours.
func timeRange(unit, n int) time.Duration {
	switch unit {
	case 0:
		return time.Duration(n) * time.Minute
	case 2:
		return time.Duration(n) * 24 * time.Hour
	default:
		return time.Duration(n) * time.Hour
	}
}

var errValueRange = errors.New("erg5mock: value range does not fit in 32 bits")

func packValues(o EncodeOptions, bits int) (rep, bitmap, data []byte, err error) {
	scaled := make([]float64, 0, len(o.Values))
	mask := make([]byte, (len(o.Values)+7)/8)
	masked := false
	for i, v := range o.Values {
		if v == o.MissingValue {
			masked = true
			continue
		}
		mask[i>>3] |= 0x80 >> uint(i&7)
		scaled = append(scaled, math.Round(v*math.Pow10(o.DecimalScale)))
	}

	ref := 0.0
	if len(scaled) > 0 {
		ref = scaled[0]
		for _, v := range scaled[1:] {
			ref = math.Min(ref, v)
		}
	}
	ref = float64(float32(ref))

	span := 0.0
	for _, v := range scaled {
		span = math.Max(span, v-ref)
	}
	if span == 0 {
		bits = 0
	}

	binaryScale := 0
	for bits > 0 && span >= math.Ldexp(1, bits) {
		binaryScale++
		span /= 2
		if binaryScale > 64 {
			return nil, nil, nil, errValueRange
		}
	}

	var body []byte
	if bits > 0 {
		scale := math.Ldexp(1, binaryScale)
		limit := math.Ldexp(1, bits) - 1
		packed := make([]uint64, len(scaled))
		for i, v := range scaled {
			packed[i] = uint64(math.Min(math.Max(math.Round((v-ref)/scale), 0), limit))
		}
		body = packBits(packed, bits)
	}

	rep = newSection(5, 21)
	putU32(rep[5:9], int64(len(scaled)))
	putU32(rep[11:15], int64(math.Float32bits(float32(ref))))
	putS16(rep[15:17], int64(binaryScale))
	putS16(rep[17:19], int64(o.DecimalScale))
	rep[19] = byte(bits)

	if masked {
		bitmap = newSection(6, 6+len(mask))
		copy(bitmap[6:], mask)
	} else {
		bitmap = newSection(6, 6)
		bitmap[5] = 255
	}

	data = newSection(7, 5+len(body))
	copy(data[5:], body)
	return rep, bitmap, data, nil
}

func putU16(b []byte, v int64) { binary.BigEndian.PutUint16(b, uint16(v)) }

func putU32(b []byte, v int64) { binary.BigEndian.PutUint32(b, uint32(v)) }

// GRIB2 signed integers use sign and magnitude, not two's complement.
func putS8(v int64) byte {
	if v < 0 {
		return byte(-v) | 0x80
	}
	return byte(v)
}

func putS16(b []byte, v int64) {
	if v < 0 {
		putU16(b, -v|0x8000)
		return
	}
	putU16(b, v)
}

func putS32(b []byte, v int64) {
	if v < 0 {
		putU32(b, -v|0x80000000)
		return
	}
	putU32(b, v)
}

func packBits(xs []uint64, nbits int) []byte {
	out := make([]byte, (len(xs)*nbits+7)/8)
	pos := 0
	for _, x := range xs {
		for b := nbits - 1; b >= 0; b-- {
			if x>>uint(b)&1 == 1 {
				out[pos>>3] |= 0x80 >> uint(pos&7)
			}
			pos++
		}
	}
	return out
}
