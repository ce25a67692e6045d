// Package schema holds the raw catalog metadata reported by a database
// adapter, before it is turned into a relationship graph.
package schema

// Table represents a database table as reported by introspection.
type Table struct {
	Name    string
	Columns []Column
	FKs     []ForeignKey
}

// Column represents a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	IsPK     bool
}

// ForeignKey represents a declared foreign key constraint. Columns and
// RefColumns are positionally paired.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}
