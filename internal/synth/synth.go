// Package synth assembles a read-only SELECT statement from an analysis and
// a join plan.
package synth

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/analyzer"
	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/joins"
	"github.com/sadopc/askdb/internal/safety"
)

const (
	// Placeholder is returned when no table could be resolved.
	Placeholder = "SELECT 1"

	DefaultListLimit  = 10
	DefaultMaxColumns = 10
)

// GeneratedQuery is the synthesized statement and what it was built from.
type GeneratedQuery struct {
	SQL        string             `json:"sql"`
	Tables     []string           `json:"tables"`
	Analysis   *analyzer.Analysis `json:"analysis"`
	Plan       joins.Plan         `json:"join_plan"`
	Confidence float64            `json:"confidence"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// comparisonRules are scanned in order over the lowered request text.
var comparisonRules = []struct {
	pattern *regexp.Regexp
	render  func(m []string) string
}{
	{regexp.MustCompile(`greater than (\d+)`), func(m []string) string { return " > " + m[1] }},
	{regexp.MustCompile(`less than (\d+)`), func(m []string) string { return " < " + m[1] }},
	{regexp.MustCompile(`equals? (\d+)`), func(m []string) string { return " = " + m[1] }},
	{regexp.MustCompile(`between (\d+) and (\d+)`), func(m []string) string { return " BETWEEN " + m[1] + " AND " + m[2] }},
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithListLimit sets the LIMIT applied to list requests.
func WithListLimit(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithMaxColumns caps the projection width.
func WithMaxColumns(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxColumns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Synthesizer is stateless and safe for concurrent use.
type Synthesizer struct {
	graph      *graph.Graph
	listLimit  int
	maxColumns int
	logger     *zap.Logger
}

// New returns a Synthesizer over g.
func New(g *graph.Graph, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		graph:      g,
		listLimit:  DefaultListLimit,
		maxColumns: DefaultMaxColumns,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("synth")
	return s
}

// Synthesize builds the statement for a. When no table is usable it returns
// the Placeholder query together with a *apperrors.NoTablesResolvedError.
func (s *Synthesizer) Synthesize(a *analyzer.Analysis, tables []string, plan joins.Plan) (*GeneratedQuery, error) {
	gq := &GeneratedQuery{
		Analysis:   a,
		Plan:       plan,
		Confidence: a.Confidence,
	}
	if len(tables) == 0 || plan.Anchor == "" {
		gq.SQL = Placeholder
		return gq, &apperrors.NoTablesResolvedError{Text: a.Text}
	}

	gq.Tables = plan.Tables
	for _, t := range plan.Unreachable {
		gq.Warnings = append(gq.Warnings, fmt.Sprintf("no relationship connects %s to %s; it was left out", t, plan.Anchor))
	}

	b := builder{s: s, a: a, plan: plan, lowered: a.Lowered()}
	b.collectColumns()

	var sql strings.Builder
	sql.WriteString("SELECT ")
	groupBy := b.selectList(&sql)
	sql.WriteString(" FROM ")
	sql.WriteString(plan.Anchor)
	for _, clause := range plan.Clauses() {
		sql.WriteByte(' ')
		sql.WriteString(clause)
	}
	if conds := b.conditions(); len(conds) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(conds, " AND "))
	}
	if groupBy != "" {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(groupBy)
	}
	if a.Intent == analyzer.IntentList && !analyzer.MentionsAll(b.lowered) {
		fmt.Fprintf(&sql, " LIMIT %d", s.listLimit)
	}

	gq.SQL = sql.String()
	gq.Warnings = append(gq.Warnings, b.warnings...)

	s.logger.Debug("synthesized query",
		zap.String("intent", string(a.Intent)),
		zap.Strings("tables", gq.Tables),
		zap.Int("warnings", len(gq.Warnings)))
	return gq, nil
}

type builder struct {
	s        *Synthesizer
	a        *analyzer.Analysis
	plan     joins.Plan
	lowered  string
	columns  []*graph.Column
	warnings []string
}

// collectColumns resolves column entities that belong to a joined table.
func (b *builder) collectColumns() {
	joined := map[string]bool{}
	for _, t := range b.plan.Tables {
		joined[strings.ToLower(t)] = true
	}
	seen := map[*graph.Column]bool{}
	for _, e := range b.a.EntitiesOf(analyzer.EntityColumn) {
		if !joined[strings.ToLower(e.Table)] {
			continue
		}
		t, ok := b.s.graph.Table(e.Table)
		if !ok {
			continue
		}
		c, ok := t.Column(e.Value)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		b.columns = append(b.columns, c)
	}
}

// measure returns the column aggregations and comparisons apply to: the
// first mentioned numeric measure column, else the first numeric measure
// column of the joined tables.
func (b *builder) measure() *graph.Column {
	for _, c := range b.columns {
		if c.IsNumeric() && !c.IsKeyLike() {
			return c
		}
	}
	for _, name := range b.plan.Tables {
		t, ok := b.s.graph.Table(name)
		if !ok {
			continue
		}
		if cols := t.NumericColumns(); len(cols) > 0 {
			return cols[0]
		}
	}
	return nil
}

func (b *builder) aggregate() string {
	fn := b.a.Aggregation
	if fn == "" {
		return "COUNT(*)"
	}
	m := b.measure()
	if m == nil {
		return "COUNT(*)"
	}
	return fn + "(" + m.Qualified() + ")"
}

// selectList writes the select list and returns the GROUP BY list, if any.
func (b *builder) selectList(sql *strings.Builder) string {
	switch b.a.Intent {
	case analyzer.IntentCount:
		sql.WriteString("COUNT(*)")
		return ""

	case analyzer.IntentAggregate:
		sql.WriteString(b.aggregate())
		return ""

	case analyzer.IntentGroupBy:
		if group := b.groupColumns(); len(group) > 0 {
			list := strings.Join(group, ", ")
			sql.WriteString(list)
			sql.WriteString(", ")
			sql.WriteString(b.aggregate())
			return list
		}
	}

	if proj := b.projection(); len(proj) > 0 {
		sql.WriteString(strings.Join(proj, ", "))
	} else {
		sql.WriteString(b.plan.Anchor + ".*")
	}
	return ""
}

// groupColumns are the mentioned columns, minus the aggregated measure.
func (b *builder) groupColumns() []string {
	var skip *graph.Column
	if b.a.Aggregation != "" {
		skip = b.measure()
	}
	var out []string
	for _, c := range b.columns {
		if c != skip {
			out = append(out, c.Qualified())
		}
	}
	return out
}

func (b *builder) projection() []string {
	cols := b.columns
	if len(cols) == 0 {
		cols = b.s.graph.SuggestColumns(b.plan.Tables, string(b.a.Intent))
	}

	present := map[*graph.Column]bool{}
	for _, c := range cols {
		present[c] = true
	}
	var out []string
	for _, name := range b.plan.Tables {
		t, ok := b.s.graph.Table(name)
		if !ok {
			continue
		}
		if key := t.KeyColumn(); key != nil && !present[key] {
			present[key] = true
			out = append(out, key.Qualified())
		}
	}
	for _, c := range cols {
		out = append(out, c.Qualified())
	}
	if len(out) > b.s.maxColumns {
		out = out[:b.s.maxColumns]
	}
	return out
}

func (b *builder) conditions() []string {
	var conds []string

	// Numbers consumed by a comparison phrase are not reused as equality
	// values.
	var comparisons []string
	consumed := map[string]int{}
	measure := b.measure()
	for _, rule := range comparisonRules {
		for _, m := range rule.pattern.FindAllStringSubmatch(b.lowered, -1) {
			if measure == nil {
				b.warnings = append(b.warnings, fmt.Sprintf("ignored %q: no numeric column", m[0]))
				continue
			}
			comparisons = append(comparisons, measure.Qualified()+rule.render(m))
			for _, n := range m[1:] {
				consumed[n]++
			}
		}
	}

	for _, e := range b.a.EntitiesOf(analyzer.EntityValue, analyzer.EntityNumber) {
		if e.Kind == analyzer.EntityNumber && consumed[e.Value] > 0 {
			consumed[e.Value]--
			continue
		}
		if e.Kind == analyzer.EntityValue {
			if flagged := safety.ScreenLiteral(e.Value); flagged != nil {
				b.warnings = append(b.warnings, fmt.Sprintf("ignored literal %q: %s", e.Value, flagged.Reason))
				continue
			}
		}
		for _, c := range b.columns {
			if e.Kind == analyzer.EntityNumber {
				conds = append(conds, c.Qualified()+" = "+e.Value)
			} else {
				conds = append(conds, c.Qualified()+" LIKE '%"+safety.EscapeLiteral(e.Value)+"%'")
			}
		}
	}
	return append(conds, comparisons...)
}

// HasLimit reports whether sql already carries a LIMIT clause.
func HasLimit(sql string) bool {
	return limitPattern.MatchString(sql)
}

// HasCount reports whether sql calls COUNT(.
func HasCount(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "COUNT(")
}

var limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
