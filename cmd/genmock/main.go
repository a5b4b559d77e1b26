// Command genmock writes a synthetic ERG5-like GRIB2 day: 24 hourly
// temperatures, the daily temperature average and maximum, the daily
// radiation accumulation and one product no extractor signature matches.
//
// Usage:
//
//	go run ./cmd/genmock -date 2023-03-15 -out data/mock/erg5.202303150000.grib
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/erg5-etl-service/internal/erg5mock"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path of the GRIB2 file")
	dateStr := flag.String("date", "2023-03-15", "reference day (YYYY-MM-DD)")
	ni := flag.Int("ni", erg5mock.DefaultGrid.Ni, "grid points along a parallel")
	nj := flag.Int("nj", erg5mock.DefaultGrid.Nj, "grid points along a meridian")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	day, err := time.Parse(time.DateOnly, *dateStr)
	if err != nil {
		return fmt.Errorf("invalid -date %q: %w", *dateStr, err)
	}

	g := erg5mock.DefaultGrid
	g.Ni, g.Nj = *ni, *nj
	data, err := erg5mock.Day(day, g)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s: %d bytes, %dx%d grid", *out, len(data), g.Ni, g.Nj)
	return nil
}
