// Package postgres registers the PostgreSQL adapter, backed by a pgx pool.
// Catalog reads go straight to pg_catalog so primary keys and composite
// foreign keys come back in a single query each.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/schema"
)

const defaultSchema = "public"

var typeMap = pgtype.NewMap()

func init() {
	adapter.Register("postgres", open)
}

func open(ctx context.Context, dsn string) (adapter.Connection, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &conn{pool: pool, database: cfg.ConnConfig.Database}, nil
}

// conn is bound to one database; the db argument of the catalog methods is
// ignored and an empty schema means public.
type conn struct {
	pool     *pgxpool.Pool
	database string
}

func (c *conn) DatabaseName() string { return c.database }
func (c *conn) AdapterName() string  { return "postgres" }

func (c *conn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *conn) Close() error {
	c.pool.Close()
	return nil
}

func scope(schemaName string) string {
	if schemaName == "" {
		return defaultSchema
	}
	return schemaName
}

func (c *conn) Tables(ctx context.Context, _, schemaName string) ([]schema.Table, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT c.relname
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
		 ORDER BY c.relname`, scope(schemaName))
	if err != nil {
		return nil, fail(ctx, "tables", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fail(ctx, "tables", err)
	}

	tables := make([]schema.Table, len(names))
	for i, name := range names {
		tables[i] = schema.Table{Name: name}
	}
	return tables, nil
}

func (c *conn) Columns(ctx context.Context, _, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT a.attname,
		        format_type(a.atttypid, a.atttypmod),
		        NOT a.attnotnull,
		        COALESCE(a.attnum = ANY(i.indkey), false)
		 FROM pg_attribute a
		 LEFT JOIN pg_index i ON i.indrelid = a.attrelid AND i.indisprimary
		 WHERE a.attrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
		   AND a.attnum > 0
		   AND NOT a.attisdropped
		 ORDER BY a.attnum`, scope(schemaName), table)
	if err != nil {
		return nil, fail(ctx, "columns", err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.Column, error) {
		var col schema.Column
		err := row.Scan(&col.Name, &col.Type, &col.Nullable, &col.IsPK)
		return col, err
	})
	if err != nil {
		return nil, fail(ctx, "columns", err)
	}
	return cols, nil
}

// ForeignKeys pairs conkey with confkey position by position, so composite
// keys keep their column order.
func (c *conn) ForeignKeys(ctx context.Context, _, schemaName, table string) ([]schema.ForeignKey, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT con.conname, a.attname, ref.relname, ra.attname
		 FROM pg_constraint con
		 CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(col, refcol, pos)
		 JOIN pg_attribute a  ON a.attrelid = con.conrelid AND a.attnum = k.col
		 JOIN pg_class ref    ON ref.oid = con.confrelid
		 JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refcol
		 WHERE con.contype = 'f'
		   AND con.conrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
		 ORDER BY con.conname, k.pos`, scope(schemaName), table)
	if err != nil {
		return nil, fail(ctx, "foreign keys", err)
	}
	defer rows.Close()

	var fks adapter.FKCollector
	for rows.Next() {
		var name, col, refTable, refCol string
		if err := rows.Scan(&name, &col, &refTable, &refCol); err != nil {
			return nil, fail(ctx, "foreign keys", err)
		}
		fks.Add(name, col, refTable, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, "foreign keys", err)
	}
	return fks.Keys(), nil
}

func (c *conn) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	start := time.Now()
	if !adapter.ReturnsRows(query) {
		tag, err := c.pool.Exec(ctx, query)
		if err != nil {
			return nil, fail(ctx, "exec", err)
		}
		return adapter.Affected(tag.RowsAffected(), start), nil
	}

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fail(ctx, "query", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	qr := &adapter.QueryResult{Columns: make([]adapter.ColumnMeta, len(fields)), IsSelect: true}
	for i, fd := range fields {
		qr.Columns[i] = adapter.ColumnMeta{Name: fd.Name, Type: typeName(fd.DataTypeOID)}
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fail(ctx, "rows", err)
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		qr.Rows = append(qr.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, "rows", err)
	}
	qr.RowCount = int64(len(qr.Rows))
	qr.Duration = time.Since(start)
	return qr, nil
}

func fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return adapter.ErrCancelled
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}

// normalizeValue flattens the pgx value types the shared normalizer does not
// know about.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = fmt.Sprint(normalizeValue(e))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case map[string]any:
		return fmt.Sprint(val)
	default:
		return adapter.NormalizeValue(v)
	}
}

// typeName resolves a result column's type OID through pgx's type map.
func typeName(oid uint32) string {
	if t, ok := typeMap.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}
