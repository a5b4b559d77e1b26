// Package sqlstore loads cell records into a SQL table. SQLite, PostgreSQL
// and ClickHouse are supported through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Table receives every loaded record.
const Table = "erg5_cell_values"

var columns = []string{"run_id", "product", "cellid", "data_date", "data_time", "lon", "lat", "value"}

type dialect struct {
	createTable string
	placeholder func(n int) string
}

func question(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

var dialects = map[string]dialect{
	config.DriverSQLite: {
		placeholder: question,
		createTable: `CREATE TABLE IF NOT EXISTS ` + Table + ` (
			run_id    TEXT NOT NULL,
			product   TEXT NOT NULL,
			cellid    INTEGER,
			data_date TEXT NOT NULL,
			data_time TEXT NOT NULL,
			lon       REAL NOT NULL,
			lat       REAL NOT NULL,
			value     REAL
		)`,
	},
	config.DriverPostgres: {
		placeholder: dollar,
		createTable: `CREATE TABLE IF NOT EXISTS ` + Table + ` (
			run_id    TEXT NOT NULL,
			product   TEXT NOT NULL,
			cellid    INTEGER,
			data_date TEXT NOT NULL,
			data_time TEXT NOT NULL,
			lon       DOUBLE PRECISION NOT NULL,
			lat       DOUBLE PRECISION NOT NULL,
			value     DOUBLE PRECISION
		)`,
	},
	config.DriverClickHouse: {
		placeholder: question,
		createTable: `CREATE TABLE IF NOT EXISTS ` + Table + ` (
			run_id    String,
			product   LowCardinality(String),
			cellid    Nullable(Int32),
			data_date String,
			data_time String,
			lon       Float64,
			lat       Float64,
			value     Nullable(Float64)
		) ENGINE = MergeTree ORDER BY (product, data_date, data_time)`,
	},
}

// Store implements pipeline.Loader on top of a *sql.DB.
type Store struct {
	db        *sql.DB
	dialect   dialect
	insert    string
	runID     domain.RunID
	batchSize int
	logger    *slog.Logger
}

// Open connects with driver and dsn, then ensures the table exists.
func Open(ctx context.Context, driver, dsn string, runID domain.RunID, batchSize int, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s, err := New(ctx, db, driver, runID, batchSize, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The store owns db and closes it on Close.
func New(ctx context.Context, db *sql.DB, driver string, runID domain.RunID, batchSize int, logger *slog.Logger) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		return nil, fmt.Errorf("create table %s: %w", Table, err)
	}
	return &Store{
		db:        db,
		dialect:   d,
		insert:    insertStatement(d),
		runID:     runID,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

func insertStatement(d dialect) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", Table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}

func (s *Store) Name() string { return "sql" }

// Load inserts the records of b, one transaction per batchSize rows.
func (s *Store) Load(ctx context.Context, b domain.ProductBatch) error {
	for start := 0; start < len(b.Records); start += s.batchSize {
		end := min(start+s.batchSize, len(b.Records))
		if err := s.insertChunk(ctx, b.Product, b.Records[start:end]); err != nil {
			return err
		}
	}
	s.logger.Debug("records inserted", "product", b.Product, "data_date", b.Date, "data_time", b.Time, "records", len(b.Records))
	return nil
}

func (s *Store) insertChunk(ctx context.Context, product string, records []domain.CellRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, s.runID.String(), product, nullInt(r.CellID), r.Date, r.Time, r.Lon, r.Lat, nullFloat(r.Value)); err != nil {
			return fmt.Errorf("insert cell %s: %w", domain.FormatCellID(r.CellID), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
