// Package joins plans the joins that connect a set of tables through the
// schema graph.
package joins

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/graph"
)

// JoinType is the SQL join keyword. Plans only ever use LeftJoin so that
// every anchor row survives.
type JoinType string

const LeftJoin JoinType = "LEFT JOIN"

// Condition is one column equality of an ON clause. Left belongs to the
// already joined side.
type Condition struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Step joins Table onto the plan through the edge it shares with From.
type Step struct {
	Type       JoinType       `json:"type"`
	From       string         `json:"from"`
	Table      string         `json:"table"`
	Kind       graph.EdgeKind `json:"kind"`
	Conditions []Condition    `json:"on"`
}

// Clause renders the step as "LEFT JOIN t ON a.x = t.y".
func (s Step) Clause() string {
	var b strings.Builder
	b.WriteString(string(s.Type))
	b.WriteByte(' ')
	b.WriteString(s.Table)
	b.WriteString(" ON ")
	for i, c := range s.Conditions {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Left)
		b.WriteString(" = ")
		b.WriteString(c.Right)
	}
	return b.String()
}

// Plan is an ordered list of join steps rooted at Anchor.
type Plan struct {
	Anchor string `json:"anchor"`
	Steps  []Step `json:"steps"`
	// Tables lists the anchor and every joined table in join order,
	// including intermediate tables of multi-hop paths.
	Tables []string `json:"tables"`
	// Unreachable lists requested tables with no path to the anchor.
	Unreachable []string `json:"unreachable,omitempty"`
}

// Clauses renders every step.
func (p Plan) Clauses() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Clause()
	}
	return out
}

// Resolver is stateless and safe for concurrent use.
type Resolver struct {
	graph  *graph.Graph
	logger *zap.Logger
}

// New returns a Resolver over g.
func New(g *graph.Graph, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{graph: g, logger: logger.Named("joins")}
}

// Resolve plans the joins for tables, anchored on the first one. A table
// reachable by a direct edge is joined in one step; otherwise every hop of
// the shortest path is joined. Tables with no path are left out.
func (r *Resolver) Resolve(tables []string) Plan {
	var plan Plan
	if len(tables) == 0 {
		return plan
	}
	anchor, ok := r.graph.Table(tables[0])
	if !ok {
		plan.Unreachable = append(plan.Unreachable, tables...)
		return plan
	}
	plan.Anchor = anchor.Name
	plan.Tables = []string{anchor.Name}

	joined := map[string]bool{strings.ToLower(anchor.Name): true}
	for _, name := range tables[1:] {
		if joined[strings.ToLower(name)] {
			continue
		}

		if e, ok := r.graph.Edge(anchor.Name, name); ok {
			r.join(&plan, joined, anchor.Name, e)
			continue
		}

		path, ok := r.graph.ShortestPath(anchor.Name, name)
		if !ok {
			r.logger.Debug("no join path", zap.String("anchor", anchor.Name), zap.String("table", name))
			plan.Unreachable = append(plan.Unreachable, name)
			continue
		}
		for i := 0; i+1 < len(path); i++ {
			if joined[strings.ToLower(path[i+1])] {
				continue
			}
			e, _ := r.graph.Edge(path[i], path[i+1])
			r.join(&plan, joined, path[i], e)
		}
	}
	return plan
}

func (r *Resolver) join(plan *Plan, joined map[string]bool, from string, e *graph.Edge) {
	to := e.Other(from)
	local, foreign := e.Oriented(from)
	step := Step{Type: LeftJoin, From: from, Table: to, Kind: e.Kind}
	for i := range local {
		if i >= len(foreign) {
			break
		}
		step.Conditions = append(step.Conditions, Condition{
			Left:  from + "." + local[i],
			Right: to + "." + foreign[i],
		})
	}
	plan.Steps = append(plan.Steps, step)
	plan.Tables = append(plan.Tables, to)
	joined[strings.ToLower(to)] = true
}
