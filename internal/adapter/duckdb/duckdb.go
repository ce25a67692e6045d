// Package duckdb registers the DuckDB adapter. The real driver needs cgo and
// is only compiled with -tags duckdb; otherwise a stub reports how to enable it.
package duckdb

import "strings"

// normalizeDSN strips the duckdb:// prefix. An empty DSN opens an in-memory
// database.
func normalizeDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "duckdb://")
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}
