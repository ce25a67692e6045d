// Package sqlite registers the SQLite adapter, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/schema"
)

const memory = ":memory:"

func init() {
	adapter.Register("sqlite", open)
}

func open(ctx context.Context, dsn string) (adapter.Connection, error) {
	path := normalizeDSN(dsn)
	if path == "" {
		path = memory
	}

	pool, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Each pooled connection to :memory: would get its own empty database.
	if path == memory {
		pool.SetMaxOpenConns(1)
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	name := path
	if path != memory {
		name = filepath.Base(path)
	}
	return &conn{DB: adapter.NewDB(pool, "sqlite", name, "PRAGMA")}, nil
}

// normalizeDSN strips the sqlite:// and file: prefixes.
func normalizeDSN(dsn string) string {
	for _, prefix := range []string{"sqlite://", "file:"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return rest
		}
	}
	return dsn
}

// conn has a single schema per file, so the db and schema arguments of the
// catalog methods are ignored.
type conn struct {
	*adapter.DB
}

func (c *conn) Tables(ctx context.Context, _, _ string) ([]schema.Table, error) {
	return c.QueryTables(ctx,
		`SELECT name FROM sqlite_schema
		 WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		 ORDER BY name`)
}

func (c *conn) Columns(ctx context.Context, _, _, table string) ([]schema.Column, error) {
	return c.QueryColumns(ctx,
		`SELECT name, type, "notnull" = 0, pk > 0
		 FROM pragma_table_info(?)
		 ORDER BY cid`, table)
}

// ForeignKeys reads pragma_foreign_key_list. SQLite leaves constraints
// unnamed, so they are named after the table and the pragma's id, and a NULL
// target column means the parent's primary key.
func (c *conn) ForeignKeys(ctx context.Context, _, _, table string) ([]schema.ForeignKey, error) {
	rows, err := c.Pool.QueryContext(ctx,
		`SELECT id, "from", "table", "to"
		 FROM pragma_foreign_key_list(?)
		 ORDER BY id, seq`, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite foreign keys: %w", err)
	}
	defer rows.Close()

	var fks adapter.FKCollector
	for rows.Next() {
		var (
			id       int
			from     string
			refTable string
			to       sql.NullString
		)
		if err := rows.Scan(&id, &from, &refTable, &to); err != nil {
			return nil, fmt.Errorf("sqlite foreign keys: %w", err)
		}
		fks.Add(fmt.Sprintf("fk_%s_%d", table, id), from, refTable, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite foreign keys: %w", err)
	}
	return fks.Keys(), nil
}
