// Package domain models ERG5 gridded observations and the rules that turn a
// decoded grid message into per-cell records.
//
// # Data Source
//
// ERG5 is the Arpae-SIMC regional reanalysis over Emilia-Romagna. One GRIB2
// file is published per day at
// https://dati-simc.arpae.it/opendata/erg5v2/grib/<YYYY>/erg5.<YYYYMMDD>0000.grib
// and carries one message per product and reference time (24 hourly
// temperature averages, daily averages and maxima, daily radiation, ...).
//
// # Products
//
// A message is identified by its metadata rather than by position in the
// file. A [Signature] is an ordered list of (key, value) pairs using eccodes
// key names; a message matches when every key is defined and equal. The
// [DefaultRegistry] is evaluated in order and the first match wins:
//
//	temp_hourly_avg  2 m temperature, average over 1 h   (stat 0, length 1)
//	temp_daily_avg   2 m temperature, average over 24 h  (stat 0, length 24)
//	temp_daily_max   2 m temperature, maximum over 24 h  (stat 2, length 24)
//
// The 2 m level is encoded as surface type 103 with scale factor 3 and scaled
// value 1800 (1.8 m above ground). [RadiationSignature] selects the daily
// accumulated short-wave radiation used by the single-point query.
//
// # Cell Identifiers
//
// ERG5 cells are numbered by an external catalog. For a regular grid with
// first point (lon0, lat0), Ni columns, Nj rows and increments (di, dj):
//
//	col    = trunc((lon - lon0) / di)
//	row    = trunc((lat - lat0) / dj)
//	cellid = Nj*col + Nj - row
//
// giving 1-based, column-major ids where row 0 carries the highest id of its
// column block. Points outside [0, Ni) x [0, Nj) have no cell id. See [CellID].
//
// # Missing Values
//
// Every message declares a missing-value sentinel (9999 in ERG5). A decoded
// value equal to the sentinel becomes an absent value: an empty CSV field, a
// JSON null.
package domain
