package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/askdb/internal/schema"
)

// DB runs statements through a database/sql pool. Drivers built on
// database/sql embed it and add their catalog queries.
type DB struct {
	Pool *sql.DB

	adapterName string
	database    string
	rowKeywords []string
}

// NewDB wraps pool. rowKeywords are statement prefixes, besides the standard
// ones, for which the driver returns rows.
func NewDB(pool *sql.DB, adapterName, database string, rowKeywords ...string) *DB {
	return &DB{Pool: pool, adapterName: adapterName, database: database, rowKeywords: rowKeywords}
}

func (d *DB) AdapterName() string  { return d.adapterName }
func (d *DB) DatabaseName() string { return d.database }

func (d *DB) Ping(ctx context.Context) error { return d.Pool.PingContext(ctx) }
func (d *DB) Close() error                   { return d.Pool.Close() }

// Execute runs query and reads its rows when it returns any.
func (d *DB) Execute(ctx context.Context, query string) (*QueryResult, error) {
	start := time.Now()
	if !ReturnsRows(query, d.rowKeywords...) {
		res, err := d.Pool.ExecContext(ctx, query)
		if err != nil {
			return nil, d.fail(ctx, "exec", err)
		}
		n, _ := res.RowsAffected()
		return Affected(n, start), nil
	}

	rows, err := d.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, d.fail(ctx, "query", err)
	}
	defer rows.Close()

	qr, err := ScanRows(rows)
	if err != nil {
		return nil, d.fail(ctx, "rows", err)
	}
	qr.Duration = time.Since(start)
	return qr, nil
}

// QueryTables runs a catalog query returning one table name per row.
func (d *DB) QueryTables(ctx context.Context, query string, args ...any) ([]schema.Table, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.fail(ctx, "tables", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, d.fail(ctx, "tables", err)
		}
		tables = append(tables, schema.Table{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, d.fail(ctx, "tables", err)
	}
	return tables, nil
}

// QueryColumns runs a catalog query returning (name, type, nullable,
// primary key) rows.
func (d *DB) QueryColumns(ctx context.Context, query string, args ...any) ([]schema.Column, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.fail(ctx, "columns", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.IsPK); err != nil {
			return nil, d.fail(ctx, "columns", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, d.fail(ctx, "columns", err)
	}
	return cols, nil
}

// QueryForeignKeys runs a catalog query returning (constraint, column,
// referenced table, referenced column) rows ordered by constraint and
// position.
func (d *DB) QueryForeignKeys(ctx context.Context, query string, args ...any) ([]schema.ForeignKey, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.fail(ctx, "foreign keys", err)
	}
	defer rows.Close()

	var fks FKCollector
	for rows.Next() {
		var name, col, refTable, refCol string
		if err := rows.Scan(&name, &col, &refTable, &refCol); err != nil {
			return nil, d.fail(ctx, "foreign keys", err)
		}
		fks.Add(name, col, refTable, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, d.fail(ctx, "foreign keys", err)
	}
	return fks.Keys(), nil
}

func (d *DB) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return fmt.Errorf("%s %s: %w", d.adapterName, op, err)
}

// ScanRows reads every row with cells normalized.
func ScanRows(rows *sql.Rows) (*QueryResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	qr := &QueryResult{Columns: make([]ColumnMeta, len(types)), IsSelect: true}
	for i, ct := range types {
		qr.Columns[i] = ColumnMeta{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		if nullable, ok := ct.Nullable(); ok {
			qr.Columns[i].Nullable = nullable
		}
	}

	for rows.Next() {
		cells := make([]any, len(types))
		dest := make([]any, len(types))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		qr.Rows = append(qr.Rows, NormalizeRow(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	qr.RowCount = int64(len(qr.Rows))
	return qr, nil
}

// FKCollector groups one-row-per-column foreign key listings into
// constraints, in the order each constraint first appears.
type FKCollector struct {
	index map[string]int
	keys  []schema.ForeignKey
}

// Add records that column of constraint name references refTable.refColumn.
func (c *FKCollector) Add(name, column, refTable, refColumn string) {
	if c.index == nil {
		c.index = map[string]int{}
	}
	i, ok := c.index[name]
	if !ok {
		i = len(c.keys)
		c.index[name] = i
		c.keys = append(c.keys, schema.ForeignKey{Name: name, RefTable: refTable})
	}
	c.keys[i].Columns = append(c.keys[i].Columns, column)
	c.keys[i].RefColumns = append(c.keys[i].RefColumns, refColumn)
}

// Keys returns the collected constraints.
func (c *FKCollector) Keys() []schema.ForeignKey { return c.keys }
