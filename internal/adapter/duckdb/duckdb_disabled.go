//go:build !duckdb

package duckdb

import (
	"context"
	"errors"

	"github.com/sadopc/askdb/internal/adapter"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

func init() {
	adapter.Register("duckdb", open)
}

func open(context.Context, string) (adapter.Connection, error) {
	return nil, errDisabled
}
