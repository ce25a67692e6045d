// Package graph builds the schema relationship graph: one node per table,
// explicit edges from declared foreign keys, inferred edges from
// <word>_id column names, mined table aliases and column semantic tags.
//
// A Graph is immutable once built and safe for concurrent readers.
package graph

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/schema"
)

// EdgeKind records where a relationship came from.
type EdgeKind string

const (
	KindExplicit EdgeKind = "explicit"
	KindInferred EdgeKind = "inferred"
)

// Table is a graph node.
type Table struct {
	Name     string
	Columns  []*Column
	Aliases  []string
	Synonyms []Tag
}

// Column belongs to exactly one Table.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
	Tags       []Tag
	Table      *Table
}

// Edge is an undirected relationship between two tables. From owns
// FromColumns (the referencing side); To owns ToColumns.
type Edge struct {
	From        string
	To          string
	Kind        EdgeKind
	FromColumns []string
	ToColumns   []string
}

// Oriented returns the edge's column pairs as seen from table: local are
// table's columns, foreign the other side's.
func (e *Edge) Oriented(table string) (local, foreign []string) {
	if strings.EqualFold(table, e.From) {
		return e.FromColumns, e.ToColumns
	}
	return e.ToColumns, e.FromColumns
}

// Other returns the endpoint that is not table.
func (e *Edge) Other(table string) string {
	if strings.EqualFold(table, e.From) {
		return e.To
	}
	return e.From
}

// Related groups the neighbours of a table by distance.
type Related struct {
	Direct   []string `json:"direct"`
	Indirect []string `json:"indirect"`
}

// Graph is the read-only schema relationship graph.
type Graph struct {
	tables map[string]*Table
	order  []string
	edges  map[pair]*Edge
	adj    map[string][]string
}

type pair struct{ a, b string }

func pairOf(x, y string) pair {
	x, y = strings.ToLower(x), strings.ToLower(y)
	if x > y {
		x, y = y, x
	}
	return pair{x, y}
}

// New assembles a graph from introspected tables. Foreign keys that point
// outside the table set or back at their own table are ignored.
func New(tables []schema.Table, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		tables: make(map[string]*Table, len(tables)),
		edges:  make(map[pair]*Edge),
		adj:    make(map[string][]string),
	}

	for _, st := range tables {
		key := strings.ToLower(st.Name)
		if _, dup := g.tables[key]; dup {
			continue
		}
		t := &Table{Name: st.Name}
		for _, sc := range st.Columns {
			t.Columns = append(t.Columns, &Column{
				Name:       sc.Name,
				Type:       sc.Type,
				PrimaryKey: sc.IsPK,
				Tags:       tagColumn(sc.Name),
				Table:      t,
			})
		}
		t.Aliases = deriveAliases(t.Name)
		t.Synonyms = tableSynonyms(t.Columns)
		g.tables[key] = t
		g.order = append(g.order, t.Name)
	}

	var explicit, inferred int
	for _, st := range tables {
		for _, fk := range st.FKs {
			if g.addExplicit(st.Name, fk, logger) {
				explicit++
			}
		}
	}
	for _, name := range g.order {
		for _, col := range g.tables[strings.ToLower(name)].Columns {
			if g.addInferred(name, col.Name) {
				inferred++
			}
		}
	}

	logger.Debug("schema graph assembled",
		zap.Int("tables", len(g.order)),
		zap.Int("explicit_edges", explicit),
		zap.Int("inferred_edges", inferred))
	return g
}

func (g *Graph) addExplicit(owner string, fk schema.ForeignKey, logger *zap.Logger) bool {
	from, ok := g.Table(owner)
	if !ok {
		return false
	}
	to, ok := g.Table(fk.RefTable)
	if !ok {
		logger.Debug("foreign key target outside schema",
			zap.String("table", owner), zap.String("ref_table", fk.RefTable))
		return false
	}
	if from == to {
		return false
	}
	if _, exists := g.edges[pairOf(from.Name, to.Name)]; exists {
		return false
	}

	refCols := make([]string, len(fk.Columns))
	for i := range fk.Columns {
		if i < len(fk.RefColumns) && fk.RefColumns[i] != "" {
			refCols[i] = fk.RefColumns[i]
		} else if key := to.KeyColumn(); key != nil {
			refCols[i] = key.Name
		}
	}
	g.addEdge(&Edge{
		From:        from.Name,
		To:          to.Name,
		Kind:        KindExplicit,
		FromColumns: append([]string(nil), fk.Columns...),
		ToColumns:   refCols,
	})
	return true
}

func (g *Graph) addInferred(owner, column string) bool {
	lower := strings.ToLower(column)
	if !strings.HasSuffix(lower, "_id") || len(lower) <= len("_id") {
		return false
	}
	target, ok := g.resolveStem(strings.TrimSuffix(lower, "_id"))
	if !ok || strings.EqualFold(target.Name, owner) {
		return false
	}
	if _, exists := g.edges[pairOf(owner, target.Name)]; exists {
		return false
	}
	key := target.idColumn()
	if key == nil {
		return false
	}
	g.addEdge(&Edge{
		From:        g.tables[strings.ToLower(owner)].Name,
		To:          target.Name,
		Kind:        KindInferred,
		FromColumns: []string{column},
		ToColumns:   []string{key.Name},
	})
	return true
}

func (g *Graph) addEdge(e *Edge) {
	g.edges[pairOf(e.From, e.To)] = e
	a, b := strings.ToLower(e.From), strings.ToLower(e.To)
	g.adj[a] = append(g.adj[a], e.To)
	g.adj[b] = append(g.adj[b], e.From)
}

// Tables returns the tables in catalog order.
func (g *Graph) Tables() []*Table {
	out := make([]*Table, len(g.order))
	for i, name := range g.order {
		out[i] = g.tables[strings.ToLower(name)]
	}
	return out
}

// TableNames returns the table names in catalog order.
func (g *Graph) TableNames() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of tables.
func (g *Graph) Len() int { return len(g.order) }

// Table looks up a table by name, case-insensitively.
func (g *Graph) Table(name string) (*Table, bool) {
	t, ok := g.tables[strings.ToLower(name)]
	return t, ok
}

// Edge returns the edge between a and b, if any.
func (g *Graph) Edge(a, b string) (*Edge, bool) {
	e, ok := g.edges[pairOf(a, b)]
	return e, ok
}

// Edges returns every edge, ordered by endpoint names.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Neighbors returns the tables sharing an edge with name, in the order the
// edges were added.
func (g *Graph) Neighbors(name string) []string {
	return append([]string(nil), g.adj[strings.ToLower(name)]...)
}

// FindTableByAlias resolves free text to a table: exact name first, then
// alias membership, then a substring match in either direction.
func (g *Graph) FindTableByAlias(text string) (*Table, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil, false
	}
	if t, ok := g.tables[needle]; ok {
		return t, true
	}
	for _, name := range g.order {
		t := g.tables[strings.ToLower(name)]
		for _, alias := range t.Aliases {
			if alias == needle {
				return t, true
			}
		}
	}
	for _, name := range g.order {
		lower := strings.ToLower(name)
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return g.tables[lower], true
		}
	}
	return nil, false
}

// RelatedTables returns the direct neighbours of table and, when depth > 1,
// the neighbours of those neighbours.
func (g *Graph) RelatedTables(table string, depth int) Related {
	var rel Related
	direct := g.Neighbors(table)
	rel.Direct = direct
	if depth <= 1 {
		return rel
	}

	seen := map[string]bool{strings.ToLower(table): true}
	for _, d := range direct {
		seen[strings.ToLower(d)] = true
	}
	for _, d := range direct {
		for _, second := range g.adj[strings.ToLower(d)] {
			key := strings.ToLower(second)
			if seen[key] {
				continue
			}
			seen[key] = true
			rel.Indirect = append(rel.Indirect, second)
		}
	}
	return rel
}

// ShortestPath returns the table names on a shortest path from -> to,
// both ends included. ok is false when no path exists.
func (g *Graph) ShortestPath(from, to string) (path []string, ok bool) {
	src, ok1 := g.Table(from)
	dst, ok2 := g.Table(to)
	if !ok1 || !ok2 {
		return nil, false
	}
	if src == dst {
		return []string{src.Name}, true
	}

	prev := map[string]string{strings.ToLower(src.Name): ""}
	queue := []string{src.Name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[strings.ToLower(cur)] {
			key := strings.ToLower(next)
			if _, visited := prev[key]; visited {
				continue
			}
			prev[key] = cur
			if key == strings.ToLower(dst.Name) {
				return g.walkBack(prev, dst.Name), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func (g *Graph) walkBack(prev map[string]string, end string) []string {
	var path []string
	for cur := end; cur != ""; cur = prev[strings.ToLower(cur)] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ---------------------------------------------------------------------------
// Table and column helpers
// ---------------------------------------------------------------------------

// Column returns the named column, case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// KeyColumn returns the primary-key-like column: the column named id if
// present, else the first declared primary key column.
func (t *Table) KeyColumn() *Column {
	if c := t.idColumn(); c != nil {
		return c
	}
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

func (t *Table) idColumn() *Column {
	c, _ := t.Column("id")
	return c
}

// NumericColumns returns the table's numeric measure columns: numeric
// columns that are not key-like.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.IsNumeric() && !c.IsKeyLike() {
			out = append(out, c)
		}
	}
	return out
}

// Qualified returns table.column.
func (c *Column) Qualified() string {
	return c.Table.Name + "." + c.Name
}

// IsKeyLike reports whether the column is a primary key, an id column or a
// <word>_id reference.
func (c *Column) IsKeyLike() bool {
	lower := strings.ToLower(c.Name)
	return c.PrimaryKey || lower == "id" || strings.HasSuffix(lower, "_id")
}

var numericTypeMarkers = []string{
	"int", "numeric", "decimal", "real", "float", "double", "money", "number", "serial",
}

// IsNumeric reports whether the declared type is a numeric SQL type.
func (c *Column) IsNumeric() bool {
	return IsNumericType(c.Type)
}

// IsNumericType reports whether a declared SQL type name is numeric.
func IsNumericType(typ string) bool {
	lower := strings.ToLower(typ)
	if strings.Contains(lower, "interval") || strings.Contains(lower, "point") {
		return false
	}
	for _, m := range numericTypeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// HasTag reports whether the column carries tag.
func (c *Column) HasTag(tag Tag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
