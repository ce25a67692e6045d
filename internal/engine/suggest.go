package engine

import (
	"context"
	"fmt"

	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/suggest"
)

const (
	maxSuggestedTables  = 10
	maxSuggestedColumns = 5
	maxSampleTables     = 3
	maxSampleQuestions  = 10
)

// TableSuggestion is a table offered for a partial request.
type TableSuggestion struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	// RowCount is -1 when the row count failed.
	RowCount int64 `json:"rowCount"`
}

// ColumnSuggestion is one of the leading columns of a suggested table.
type ColumnSuggestion struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	Type  string `json:"type"`
}

// Suggestions are schema hints for a partial request.
type Suggestions struct {
	Tables          []TableSuggestion  `json:"tables"`
	Columns         []ColumnSuggestion `json:"columns"`
	Relationships   graph.Related      `json:"relationships"`
	SampleQuestions []string           `json:"sampleQuestions"`
}

// Suggest offers tables matching partial, their leading columns, the tables
// related to the best match and a few sample questions.
func (e *Engine) Suggest(ctx context.Context, partial string) *Suggestions {
	s := &Suggestions{}
	for _, m := range suggest.Rank(partial, e.graph.TableNames(), maxSuggestedTables) {
		t, ok := e.graph.Table(m.Name)
		if !ok {
			continue
		}
		n, ok := e.rowCount(ctx, t.Name)
		if !ok {
			n = -1
		}
		s.Tables = append(s.Tables, TableSuggestion{Name: t.Name, Aliases: t.Aliases, RowCount: n})

		for i, c := range t.Columns {
			if i == maxSuggestedColumns {
				break
			}
			s.Columns = append(s.Columns, ColumnSuggestion{Name: c.Name, Table: t.Name, Type: c.Type})
		}
	}
	if len(s.Tables) > 0 {
		s.Relationships = e.graph.RelatedTables(s.Tables[0].Name, 2)
	}
	s.SampleQuestions = e.sampleQuestions(s.Tables)
	return s
}

func (e *Engine) sampleQuestions(tables []TableSuggestion) []string {
	var out []string
	for i, t := range tables {
		if i == maxSampleTables {
			break
		}
		out = append(out,
			fmt.Sprintf("Show me all %s", t.Name),
			fmt.Sprintf("How many %s are there?", t.Name),
			fmt.Sprintf("Get the latest %s", t.Name),
		)
		if direct := e.graph.Neighbors(t.Name); len(direct) > 0 {
			out = append(out, fmt.Sprintf("Show %s with their %s", t.Name, direct[0]))
		}
	}
	if len(out) > maxSampleQuestions {
		out = out[:maxSampleQuestions]
	}
	return out
}
