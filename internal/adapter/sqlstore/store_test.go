package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

const testRunID = domain.RunID("0190a6b2-7c1e-7a2b-9d3f-1a2b3c4d5e6f")

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func testBatch() domain.ProductBatch {
	return domain.ProductBatch{
		Product: domain.TempDailyAvg,
		Date:    "20230315",
		Time:    "0000",
		Records: []domain.CellRecord{
			{CellID: intPtr(2), Date: "20230315", Time: "0000", Lon: 10, Lat: 44, Value: floatPtr(12.5)},
			{CellID: intPtr(4), Date: "20230315", Time: "0000", Lon: 10.25, Lat: 44, Value: nil},
			{CellID: nil, Date: "20230315", Time: "0000", Lon: 8, Lat: 40, Value: floatPtr(3)},
		},
	}
}

var (
	createRe = regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + Table)
	insertRe = regexp.QuoteMeta("INSERT INTO " + Table)
)

func newMockStore(t *testing.T, driver string, batchSize int) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := New(context.Background(), db, driver, testRunID, batchSize, slog.Default())
	require.NoError(t, err)
	return s, mock
}

func TestInsertStatement(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO erg5_cell_values (run_id, product, cellid, data_date, data_time, lon, lat, value) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		insertStatement(dialects[config.DriverPostgres]))
	assert.Equal(t,
		"INSERT INTO erg5_cell_values (run_id, product, cellid, data_date, data_time, lon, lat, value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		insertStatement(dialects[config.DriverClickHouse]))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(context.Background(), db, "oracle", testRunID, 10, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestNew_CreateTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(createRe).WillReturnError(errors.New("permission denied"))

	_, err = New(context.Background(), db, config.DriverPostgres, testRunID, 10, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table")
}

func TestStore_LoadBatchesTransactions(t *testing.T) {
	s, mock := newMockStore(t, config.DriverPostgres, 2)
	product := domain.TempDailyAvg

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insertRe)
	prep.ExpectExec().WithArgs(testRunID.String(), product, int64(2), "20230315", "0000", 10.0, 44.0, 12.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(testRunID.String(), product, int64(4), "20230315", "0000", 10.25, 44.0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectPrepare(insertRe).ExpectExec().
		WithArgs(testRunID.String(), product, nil, "20230315", "0000", 8.0, 40.0, 3.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Load(context.Background(), testBatch()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, config.DriverSQLite, 10)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insertRe)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Load(context.Background(), testBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert cell 4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Close(t *testing.T) {
	s, mock := newMockStore(t, config.DriverClickHouse, 10)
	mock.ExpectClose()

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "sql", s.Name())
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "erg5.db")
	ctx := context.Background()

	s, err := Open(ctx, config.DriverSQLite, dsn, testRunID, 2, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, testBatch()))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var total, nullCells, nullValues int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(cellid IS NULL), SUM(value IS NULL) FROM `+Table).
		Scan(&total, &nullCells, &nullValues))
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, nullCells)
	assert.Equal(t, 1, nullValues)

	var runID string
	require.NoError(t, db.QueryRow(`SELECT DISTINCT run_id FROM `+Table).Scan(&runID))
	assert.Equal(t, testRunID.String(), runID)
}
