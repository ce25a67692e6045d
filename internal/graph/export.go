package graph

import "strings"

// Export is a serializable snapshot of the graph.
type Export struct {
	Tables         []ExportTable  `json:"tables" yaml:"tables"`
	Relationships  []ExportEdge   `json:"relationships" yaml:"relationships"`
	NamingPatterns NamingPatterns `json:"naming_patterns" yaml:"naming_patterns"`
}

type ExportTable struct {
	Name     string         `json:"name" yaml:"name"`
	Aliases  []string       `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Synonyms []Tag          `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Columns  []ExportColumn `json:"columns" yaml:"columns"`
}

type ExportColumn struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Tags       []Tag  `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type ExportEdge struct {
	From        string   `json:"from" yaml:"from"`
	To          string   `json:"to" yaml:"to"`
	Kind        EdgeKind `json:"kind" yaml:"kind"`
	FromColumns []string `json:"from_columns" yaml:"from_columns"`
	ToColumns   []string `json:"to_columns" yaml:"to_columns"`
}

// Export returns a snapshot of tables, relationships and naming patterns.
func (g *Graph) Export() Export {
	var out Export
	for _, t := range g.Tables() {
		et := ExportTable{Name: t.Name, Aliases: t.Aliases, Synonyms: t.Synonyms}
		for _, c := range t.Columns {
			et.Columns = append(et.Columns, ExportColumn{
				Name:       c.Name,
				Type:       c.Type,
				PrimaryKey: c.PrimaryKey,
				Tags:       c.Tags,
			})
		}
		out.Tables = append(out.Tables, et)
	}
	for _, e := range g.Edges() {
		out.Relationships = append(out.Relationships, ExportEdge{
			From:        e.From,
			To:          e.To,
			Kind:        e.Kind,
			FromColumns: e.FromColumns,
			ToColumns:   e.ToColumns,
		})
	}
	out.NamingPatterns = namingPatterns(g.order)
	return out
}

// columnHints maps a query category to column-name fragments worth
// projecting for it.
var columnHints = map[string][]string{
	"count":     {"id"},
	"list":      {"id", "name", "title", "description"},
	"search":    {"name", "title", "description", "email"},
	"financial": {"amount", "price", "cost", "total", "value"},
	"temporal":  {"created_at", "updated_at", "date", "timestamp"},
	"status":    {"status", "state", "active", "enabled"},
}

var defaultColumnHints = []string{"id", "name"}

// SuggestColumns returns qualified columns of tables whose names contain a
// fragment associated with category. Unknown categories use id and name.
func (g *Graph) SuggestColumns(tables []string, category string) []*Column {
	hints, ok := columnHints[category]
	if !ok {
		hints = defaultColumnHints
	}
	var out []*Column
	for _, name := range tables {
		t, ok := g.Table(name)
		if !ok {
			continue
		}
		for _, c := range t.Columns {
			lower := strings.ToLower(c.Name)
			for _, h := range hints {
				if strings.Contains(lower, h) {
					out = append(out, c)
					break
				}
			}
		}
	}
	return out
}
