package adapter

import (
	"context"
	"fmt"

	"github.com/sadopc/askdb/internal/schema"
)

// Catalog exposes a Connection as the metadata source and read-only
// execution collaborator used by the translator. Database and Schema scope
// introspection; empty values select the connection's defaults.
type Catalog struct {
	Conn     Connection
	Database string
	Schema   string
}

// NewCatalog returns a Catalog over conn. An empty database defaults to
// conn.DatabaseName().
func NewCatalog(conn Connection, database, schemaName string) *Catalog {
	if database == "" {
		database = conn.DatabaseName()
	}
	return &Catalog{Conn: conn, Database: database, Schema: schemaName}
}

// ListTables returns the table names in catalog order.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	tables, err := c.Conn.Tables(ctx, c.Database, c.Schema)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names, nil
}

// ListColumns returns column metadata for table.
func (c *Catalog) ListColumns(ctx context.Context, table string) ([]schema.Column, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	return c.Conn.Columns(ctx, c.Database, c.Schema, table)
}

// ListForeignKeys returns the declared foreign keys of table.
func (c *Catalog) ListForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	return c.Conn.ForeignKeys(ctx, c.Database, c.Schema, table)
}

// ExecuteReadOnly runs stmt if it is a row-returning statement and refuses
// anything else.
func (c *Catalog) ExecuteReadOnly(ctx context.Context, stmt string) (*QueryResult, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	if !ReturnsRows(stmt) {
		return nil, fmt.Errorf("%w: %.40q", ErrNotReadOnly, stmt)
	}
	return c.Conn.Execute(ctx, stmt)
}
