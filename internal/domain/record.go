package domain

import "fmt"

// CellRecord is one grid point of a classified message. CellID is nil when
// the point lies outside the grid; Value is nil when the decoded value is the
// message's missing-value sentinel.
type CellRecord struct {
	CellID *int
	Date   string
	Time   string
	Lon    float64
	Lat    float64
	Value  *float64
}

// ProductBatch groups the records extracted from one message.
type ProductBatch struct {
	Product string
	Date    string
	Time    string
	Records []CellRecord

	// Counters for observability; they never affect the records.
	OutOfGrid int
	Missing   int
}

// Reference returns the reference date and time of a message as the
// YYYYMMDD and HHMM strings used in output paths and records.
func Reference(m Metadata) (date, hhmm string, err error) {
	if date, err = m.String("dataDate"); err != nil {
		return "", "", fmt.Errorf("reference date: %w", err)
	}
	if hhmm, err = m.String("dataTime"); err != nil {
		return "", "", fmt.Errorf("reference time: %w", err)
	}
	return date, hhmm, nil
}

// Extract reads every point of m, in the order the message yields them, into
// records of product.
func Extract(m Message, product string) (ProductBatch, error) {
	grid, err := GridFromMetadata(m)
	if err != nil {
		return ProductBatch{}, err
	}
	missing, err := m.Double("missingValue")
	if err != nil {
		return ProductBatch{}, fmt.Errorf("missing value: %w", err)
	}
	date, hhmm, err := Reference(m)
	if err != nil {
		return ProductBatch{}, err
	}

	batch := ProductBatch{
		Product: product,
		Date:    date,
		Time:    hhmm,
		Records: make([]CellRecord, 0, grid.Ncol*grid.Nrow),
	}

	it := m.Points()
	for it.Next() {
		p := it.Point()
		rec := CellRecord{Date: date, Time: hhmm, Lon: p.Lon, Lat: p.Lat}
		if id, ok := grid.CellID(p.Lon, p.Lat); ok {
			rec.CellID = &id
		} else {
			batch.OutOfGrid++
		}
		if p.Value == missing {
			batch.Missing++
		} else {
			v := p.Value
			rec.Value = &v
		}
		batch.Records = append(batch.Records, rec)
	}
	if err := it.Err(); err != nil {
		return ProductBatch{}, fmt.Errorf("iterate points: %w", err)
	}
	return batch, nil
}
