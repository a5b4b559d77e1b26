// Package erg5mock synthesizes ERG5-shaped GRIB2 days for tests, the mock
// generator and local runs without network access.
package erg5mock

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Grid is a regular grid whose first point is its south-west corner.
type Grid struct {
	Ni, Nj     int
	Lon0, Lat0 float64
	Step       float64
}

// DefaultGrid roughly covers Emilia-Romagna.
var DefaultGrid = Grid{Ni: 16, Nj: 8, Lon0: 9.0, Lat0: 43.5, Step: 0.25}

// Precipitation is a product of the mock day that no default signature
// matches.
const Precipitation = "precipitation_daily"

const arpaeCentre = 80

// Message encodes one field of product on day. hour selects the reference
// time of hourly products and is ignored otherwise.
func Message(product string, day time.Time, g Grid, hour int) ([]byte, error) {
	ref := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	p, field, err := productFor(product)
	if err != nil {
		return nil, err
	}
	if product == domain.TempHourlyAvg {
		ref = ref.Add(time.Duration(hour) * time.Hour)
	}

	values := make([]float64, g.Ni*g.Nj)
	for j := range g.Nj {
		for i := range g.Ni {
			k := j*g.Ni + i
			// the north-east corner is masked like the sea cells of ERG5
			if i == g.Ni-1 && j == g.Nj-1 {
				values[k] = MissingValue
				continue
			}
			values[k] = field(i, j, hour)
		}
	}

	return Encode(EncodeOptions{
		Centre:       arpaeCentre,
		Reference:    ref,
		Ni:           g.Ni,
		Nj:           g.Nj,
		La1:          g.Lat0,
		Lo1:          g.Lon0,
		Di:           g.Step,
		Dj:           g.Step,
		ScanningMode: 0x40,
		Product:      p,
		Values:       values,
		MissingValue: MissingValue,
		DecimalScale: 2,
	})
}

// Day concatenates the messages of one ERG5 day: 24 hourly temperatures,
// the daily temperature average and maximum, the radiation accumulation and
// an unclassified precipitation field.
func Day(day time.Time, g Grid) ([]byte, error) {
	var buf bytes.Buffer
	add := func(product string, hour int) error {
		b, err := Message(product, day, g, hour)
		if err != nil {
			return fmt.Errorf("%s: %w", product, err)
		}
		buf.Write(b)
		return nil
	}
	for h := range 24 {
		if err := add(domain.TempHourlyAvg, h); err != nil {
			return nil, err
		}
	}
	for _, p := range []string{domain.TempDailyAvg, domain.TempDailyMax, domain.RadiationDaily, Precipitation} {
		if err := add(p, 0); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type fieldFunc func(i, j, hour int) float64

func temperature2m(stat, length int) Product {
	return Product{
		Template:                       8,
		IndicatorOfUnitOfTimeRange:     1,
		TypeOfFirstFixedSurface:        103,
		ScaleFactorOfFirstFixedSurface: 3,
		ScaledValueOfFirstFixedSurface: 1800,
		TypeOfSecondFixedSurface:       255,
		TypeOfStatisticalProcessing:    stat,
		IndicatorOfUnitForTimeRange:    1,
		LengthOfTimeRange:              length,
	}
}

// temperature is a smooth field in degrees Celsius, warmer to the south-east
// with a diurnal cycle peaking at 14 UTC.
func temperature(i, j, hour int) float64 {
	diurnal := 4 * math.Cos(float64(hour-14)*math.Pi/12)
	return math.Round((12+0.3*float64(i)-0.5*float64(j)+diurnal)*100) / 100
}

func productFor(name string) (Product, fieldFunc, error) {
	switch name {
	case domain.TempHourlyAvg:
		return temperature2m(0, 1), temperature, nil
	case domain.TempDailyAvg:
		return temperature2m(0, 24), func(i, j, _ int) float64 { return temperature(i, j, 8) }, nil
	case domain.TempDailyMax:
		return temperature2m(2, 24), func(i, j, _ int) float64 { return temperature(i, j, 14) }, nil
	case domain.RadiationDaily:
		p := Product{
			Template:                    8,
			ParameterCategory:           4,
			ParameterNumber:             7,
			TypeOfGeneratingProcess:     8,
			IndicatorOfUnitOfTimeRange:  1,
			TypeOfFirstFixedSurface:     1,
			TypeOfSecondFixedSurface:    255,
			TypeOfStatisticalProcessing: 1,
			IndicatorOfUnitForTimeRange: 1,
			LengthOfTimeRange:           24,
		}
		return p, func(i, j, _ int) float64 { return 15 + 0.1*float64(i) + 0.2*float64(j) }, nil
	case Precipitation:
		p := Product{
			Template:                    8,
			ParameterCategory:           1,
			ParameterNumber:             8,
			IndicatorOfUnitOfTimeRange:  1,
			TypeOfFirstFixedSurface:     1,
			TypeOfSecondFixedSurface:    255,
			TypeOfStatisticalProcessing: 1,
			IndicatorOfUnitForTimeRange: 1,
			LengthOfTimeRange:           24,
		}
		return p, func(i, _, _ int) float64 { return float64(i%4) * 1.5 }, nil
	default:
		return Product{}, nil, fmt.Errorf("erg5mock: unknown product %q", name)
	}
}
