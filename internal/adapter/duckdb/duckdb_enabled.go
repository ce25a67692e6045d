//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/schema"
)

func init() {
	adapter.Register("duckdb", open)
}

func open(ctx context.Context, dsn string) (adapter.Connection, error) {
	path := normalizeDSN(dsn)

	pool, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb open: %w", err)
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}

	var catalog string
	if err := pool.QueryRowContext(ctx, "SELECT current_database()").Scan(&catalog); err != nil {
		pool.Close()
		return nil, fmt.Errorf("duckdb current database: %w", err)
	}
	return &conn{
		DB:      adapter.NewDB(pool, "duckdb", path, "DESCRIBE", "PRAGMA", "FROM", "SUMMARIZE"),
		catalog: catalog,
	}, nil
}

// conn is named after its file, while DuckDB's catalog functions key on the
// attached database name.
type conn struct {
	*adapter.DB
	catalog string
}

func (c *conn) scope(db, schemaName string) (string, string) {
	if db == "" || db == c.DatabaseName() {
		db = c.catalog
	}
	if schemaName == "" {
		schemaName = "main"
	}
	return db, schemaName
}

func (c *conn) Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error) {
	db, schemaName = c.scope(db, schemaName)
	return c.QueryTables(ctx,
		`SELECT table_name FROM duckdb_tables()
		 WHERE database_name = ? AND schema_name = ? AND NOT temporary
		 ORDER BY table_name`, db, schemaName)
}

func (c *conn) Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error) {
	db, schemaName = c.scope(db, schemaName)
	return c.QueryColumns(ctx,
		`SELECT col.column_name, col.data_type, col.is_nullable,
		        EXISTS (
		            SELECT 1 FROM duckdb_constraints() k
		            WHERE k.database_name = col.database_name
		              AND k.schema_name = col.schema_name
		              AND k.table_name = col.table_name
		              AND k.constraint_type = 'PRIMARY KEY'
		              AND list_contains(k.constraint_column_names, col.column_name)
		        )
		 FROM duckdb_columns() col
		 WHERE col.database_name = ? AND col.schema_name = ? AND col.table_name = ?
		 ORDER BY col.column_index`, db, schemaName, table)
}

func (c *conn) ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error) {
	db, schemaName = c.scope(db, schemaName)
	return c.QueryForeignKeys(ctx,
		`SELECT rc.constraint_name, fk.column_name, pk.table_name, pk.column_name
		 FROM information_schema.referential_constraints rc
		 JOIN information_schema.key_column_usage fk
		   ON fk.constraint_catalog = rc.constraint_catalog
		  AND fk.constraint_schema = rc.constraint_schema
		  AND fk.constraint_name = rc.constraint_name
		 JOIN information_schema.key_column_usage pk
		   ON pk.constraint_catalog = rc.unique_constraint_catalog
		  AND pk.constraint_schema = rc.unique_constraint_schema
		  AND pk.constraint_name = rc.unique_constraint_name
		  AND pk.ordinal_position = fk.ordinal_position
		 WHERE fk.table_catalog = ? AND fk.table_schema = ? AND fk.table_name = ?
		 ORDER BY rc.constraint_name, fk.ordinal_position`, db, schemaName, table)
}
