// Package adapter defines the database connections the translator reads
// catalog metadata from and runs statements through.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sadopc/askdb/internal/schema"
)

var (
	ErrNotConnected = errors.New("not connected to database")
	ErrCancelled    = errors.New("query cancelled")
	ErrNotReadOnly  = errors.New("statement does not return rows")
)

// Opener connects to a database described by dsn.
type Opener func(ctx context.Context, dsn string) (Connection, error)

// Connection is an open database. Introspection takes a database and schema
// name; empty values select the connection's defaults.
type Connection interface {
	Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error)
	Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error)
	ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error)

	Execute(ctx context.Context, query string) (*QueryResult, error)

	Ping(ctx context.Context) error
	Close() error

	DatabaseName() string
	AdapterName() string
}

// QueryResult holds the result of a statement. Row cells are normalized to
// nil, int64, float64, bool or string.
type QueryResult struct {
	Columns  []ColumnMeta
	Rows     [][]any
	RowCount int64
	Duration time.Duration
	IsSelect bool
	Message  string
}

// ColumnMeta describes a result column.
type ColumnMeta struct {
	Name     string
	Type     string
	Nullable bool
}

// ColumnNames returns the result's column names in order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Affected builds the result of a statement that returned no rows.
func Affected(n int64, start time.Time) *QueryResult {
	return &QueryResult{
		RowCount: n,
		Duration: time.Since(start),
		Message:  fmt.Sprintf("%d row(s) affected", n),
	}
}

// Registry maps adapter names to their openers. Driver packages add
// themselves from init.
var Registry = map[string]Opener{}

// Register makes open available under name.
func Register(name string, open Opener) {
	Registry[name] = open
}

// Open connects through the adapter registered as name.
func Open(ctx context.Context, name, dsn string) (Connection, error) {
	open, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown adapter: %s", name)
	}
	return open(ctx, dsn)
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReturnsRows reports whether query produces a result set. Leading comments
// are skipped. extra lists driver keywords (PRAGMA, DESCRIBE) that also
// return rows.
func ReturnsRows(query string, extra ...string) bool {
	upper := strings.ToUpper(stripLeadingComments(query))
	for _, prefix := range append([]string{"SELECT", "WITH", "VALUES", "TABLE", "SHOW", "EXPLAIN"}, extra...) {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func stripLeadingComments(query string) string {
	q := strings.TrimSpace(query)
	for {
		switch {
		case strings.HasPrefix(q, "--"):
			idx := strings.Index(q, "\n")
			if idx < 0 {
				return ""
			}
			q = strings.TrimSpace(q[idx+1:])
		case strings.HasPrefix(q, "/*"):
			idx := strings.Index(q, "*/")
			if idx < 0 {
				return ""
			}
			q = strings.TrimSpace(q[idx+2:])
		default:
			return q
		}
	}
}
