// Command validate cross-checks a dump directory: every CSV file must have a
// GeoJSON (.json) twin carrying the same records, and the reverse. It checks
// file pairing, row counts, headers, cell ids, coordinates and values,
// including the encoding of missing values.
//
// Usage:
//
//	go run ./cmd/validate -dir out/
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/erg5-etl-service/internal/adapter/csvfile"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "dump output directory")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== ERG5 Dump Validation ===")
	fmt.Println()

	csvs, geos, err := listOutputs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list %s: %v\n", dir, err)
		return 1
	}

	pairing, pairs := validatePairing(csvs, geos)
	tables := make(map[string][][]string, len(pairs))
	collections := make(map[string]*geojson.FeatureCollection, len(pairs))
	for _, stem := range pairs {
		rows, err := loadCSV(filepath.Join(dir, stem+".csv"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s.csv: %v\n", stem, err)
			return 1
		}
		fc, err := loadGeoJSON(filepath.Join(dir, stem+".json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s.json: %v\n", stem, err)
			return 1
		}
		tables[stem] = rows
		collections[stem] = fc
	}

	phases := []*phase{
		pairing,
		validateCSVShape(pairs, tables),
		validateCounts(pairs, tables, collections),
		validateRecords(pairs, tables, collections),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Files: %d CSV, %d GeoJSON, %d pairs, %d records\n", len(csvs), len(geos), len(pairs), countRows(tables))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// listOutputs returns the file stems of the CSV and GeoJSON files in dir.
func listOutputs(dir string) (csvs, geos []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch filepath.Ext(name) {
		case ".csv":
			csvs = append(csvs, strings.TrimSuffix(name, ".csv"))
		case ".json":
			geos = append(geos, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(csvs)
	sort.Strings(geos)
	return csvs, geos, nil
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func loadGeoJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(data)
}

func countRows(tables map[string][][]string) int {
	n := 0
	for _, rows := range tables {
		if len(rows) > 0 {
			n += len(rows) - 1
		}
	}
	return n
}

// ── Phase 1: Pairing ──

func validatePairing(csvs, geos []string) (*phase, []string) {
	p := &phase{name: "Phase 1: File Pairing (CSV vs GeoJSON)"}
	var pairs []string
	for _, stem := range csvs {
		if _, found := slices.BinarySearch(geos, stem); found {
			pairs = append(pairs, stem)
		} else {
			p.errorf("%s.csv has no GeoJSON twin", stem)
		}
	}
	for _, stem := range geos {
		if _, found := slices.BinarySearch(csvs, stem); !found {
			p.errorf("%s.json has no CSV twin", stem)
		}
	}
	if len(csvs) == 0 && len(geos) == 0 {
		p.errorf("no output files found")
	}
	return p, pairs
}

// ── Phase 2: CSV shape ──

func validateCSVShape(pairs []string, tables map[string][][]string) *phase {
	p := &phase{name: "Phase 2: CSV Shape (header, cell ids)"}
	for _, stem := range pairs {
		rows := tables[stem]
		if len(rows) == 0 {
			p.errorf("%s.csv: empty file", stem)
			continue
		}
		if !slices.Equal(rows[0], csvfile.Header) {
			p.errorf("%s.csv: header %v, want %v", stem, rows[0], csvfile.Header)
		}
		seen := make(map[string]int)
		for i, row := range rows[1:] {
			line := i + 2
			if len(row) != len(csvfile.Header) {
				p.errorf("%s.csv line %d: %d fields, want %d", stem, line, len(row), len(csvfile.Header))
				continue
			}
			id := row[0]
			if id == "" {
				continue
			}
			if n, err := strconv.Atoi(id); err != nil || n <= 0 {
				p.errorf("%s.csv line %d: invalid cellid %q", stem, line, id)
			}
			// the product layout repeats cells once per reference time
			key := id + "|" + row[1] + "|" + row[2]
			if prev, dup := seen[key]; dup {
				p.errorf("%s.csv line %d: cell %s at %s %s already on line %d", stem, line, id, row[1], row[2], prev)
			}
			seen[key] = line
		}
	}
	return p
}

// ── Phase 3: Counts ──

func validateCounts(pairs []string, tables map[string][][]string, collections map[string]*geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 3: Record Counts"}
	for _, stem := range pairs {
		rows := len(tables[stem]) - 1
		features := len(collections[stem].Features)
		if rows != features {
			p.errorf("%s: %d CSV rows, %d GeoJSON features", stem, rows, features)
		}
	}
	return p
}

// ── Phase 4: Records ──
// Records are compared in file order: both serializers keep the message order.

func validateRecords(pairs []string, tables map[string][][]string, collections map[string]*geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 4: Record Equality (row by row)"}
	for _, stem := range pairs {
		rows := tables[stem]
		features := collections[stem].Features
		n := min(len(rows)-1, len(features))
		for i := range n {
			row := rows[i+1]
			if len(row) != len(csvfile.Header) {
				continue
			}
			compareRecord(p, fmt.Sprintf("%s line %d", stem, i+2), row, features[i])
		}
	}
	return p
}

func compareRecord(p *phase, where string, row []string, f *geojson.Feature) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		p.errorf("%s: geometry is %T, want Point", where, f.Geometry)
		return
	}

	want := map[string]string{
		"cellid": row[0],
		"date":   row[1],
		"time":   row[2],
		"lat":    row[3],
		"lon":    row[4],
		"value":  row[5],
	}
	got := map[string]string{
		"cellid": propertyCellID(f.Properties["cellid"]),
		"date":   propertyString(f.Properties["date"]),
		"time":   propertyString(f.Properties["time"]),
		"lat":    domain.FormatFloat(pt.Lat()),
		"lon":    domain.FormatFloat(pt.Lon()),
		"value":  propertyValue(f.Properties["value"]),
	}
	for _, key := range csvfile.Header {
		if want[key] != got[key] {
			p.errorf("%s: %s: csv=%q, geojson=%q", where, key, want[key], got[key])
		}
	}
}

func propertyString(v any) string {
	s, _ := v.(string)
	return s
}

// propertyCellID renders a JSON number the way the CSV writer renders a cell
// id; null becomes the empty string.
func propertyCellID(v any) string {
	n, ok := v.(float64)
	if !ok {
		return ""
	}
	return strconv.FormatInt(int64(n), 10)
}

func propertyValue(v any) string {
	n, ok := v.(float64)
	if !ok {
		return ""
	}
	return domain.FormatFloat(n)
}
