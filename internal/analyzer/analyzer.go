// Package analyzer classifies a natural-language request and binds the words
// in it to tables, columns and literal values of a schema graph.
package analyzer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sadopc/askdb/internal/graph"
)

// EntityKind tags an extracted span.
type EntityKind string

const (
	EntityTable  EntityKind = "table"
	EntityColumn EntityKind = "column"
	EntityValue  EntityKind = "value"
	EntityNumber EntityKind = "number"
)

// Entity is a piece of the request bound to a schema object or a literal.
type Entity struct {
	Kind       EntityKind `json:"type"`
	Value      string     `json:"value"`
	Original   string     `json:"original,omitempty"`
	Table      string     `json:"table,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Analysis is the immutable result of analyzing one request.
type Analysis struct {
	Text        string   `json:"text"`
	Intent      Intent   `json:"intent"`
	Keywords    []string `json:"keywords,omitempty"`
	Entities    []Entity `json:"entities"`
	Aggregation string   `json:"aggregation,omitempty"`
	Confidence  float64  `json:"confidence"`
	// Tables are the tables the request touches: mentioned tables in
	// mention order, else inferred ones, plus any related-table expansion.
	Tables   []string `json:"tables"`
	Inferred bool     `json:"inferred,omitempty"`
}

// Lowered returns the lower-cased request text.
func (a *Analysis) Lowered() string { return lower(a.Text) }

// EntitiesOf returns the entities of the given kinds, in extraction order.
func (a *Analysis) EntitiesOf(kinds ...EntityKind) []Entity {
	var out []Entity
	for _, e := range a.Entities {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Embedder turns texts into vectors. It is optional; the analyzer works
// without one.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithEmbedder enables semantic table matching.
func WithEmbedder(e Embedder) Option {
	return func(a *Analyzer) { a.embedder = e }
}

// WithMinSimilarity overrides DefaultMinSimilarity.
func WithMinSimilarity(v float64) Option {
	return func(a *Analyzer) { a.minSimilarity = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

type tableMatcher struct {
	table   *graph.Table
	name    *regexp.Regexp
	aliases []*regexp.Regexp
	columns []*regexp.Regexp
}

// Analyzer is stateless after construction and safe for concurrent use.
type Analyzer struct {
	graph         *graph.Graph
	embedder      Embedder
	minSimilarity float64
	logger        *zap.Logger
	matchers      []tableMatcher
}

// New precompiles the matchers for every table in g.
func New(g *graph.Graph, opts ...Option) *Analyzer {
	a := &Analyzer{
		graph:         g,
		minSimilarity: DefaultMinSimilarity,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("analyzer")

	for _, t := range g.Tables() {
		m := tableMatcher{table: t, name: tablePattern(t.Name)}
		for _, alias := range t.Aliases {
			m.aliases = append(m.aliases, aliasPattern(alias))
		}
		for _, c := range t.Columns {
			m.columns = append(m.columns, columnPattern(c.Name))
		}
		a.matchers = append(a.matchers, m)
	}
	return a
}

var lowerCaser = cases.Lower(language.Und)

func lower(s string) string { return lowerCaser.String(s) }

// Analyze never fails: an unrecognized request yields the list intent, no
// entities and the base confidence.
func (a *Analyzer) Analyze(ctx context.Context, text string) *Analysis {
	lowered := lower(text)
	res := &Analysis{
		Text:       text,
		Intent:     IntentList,
		Confidence: baseConfidence,
	}

	a.detectIntent(res, lowered)
	res.Entities = a.extractEntities(text, lowered)
	res.Tables = a.identifyTables(ctx, res, lowered)

	a.logger.Debug("analyzed request",
		zap.String("intent", string(res.Intent)),
		zap.Strings("tables", res.Tables),
		zap.Int("entities", len(res.Entities)),
		zap.Float64("confidence", res.Confidence))
	return res
}

func (a *Analyzer) detectIntent(res *Analysis, lowered string) {
	for _, rule := range compiledIntents {
		for i, re := range rule.patterns {
			if re.MatchString(lowered) {
				res.Intent = rule.intent
				res.Confidence += keywordConfidence
				res.Keywords = append(res.Keywords, rule.keywords[i])
			}
		}
	}
	res.Confidence = math.Min(1, math.Max(0, res.Confidence))

	for i, re := range compiledAggregations {
		if re.MatchString(lowered) {
			res.Aggregation = aggregationWords[i].fn
			if aggregationWords[i].fn != "COUNT" {
				res.Intent = IntentAggregate
			}
		}
	}

	if anyMatch(compiledGroupBy, lowered) {
		res.Intent = IntentGroupBy
	}
}

func (a *Analyzer) extractEntities(text, lowered string) []Entity {
	var entities []Entity

	type tableHit struct {
		entity  Entity
		matcher tableMatcher
		pos     int
	}
	var hits []tableHit
	for _, m := range a.matchers {
		if loc := m.name.FindStringIndex(lowered); loc != nil {
			hits = append(hits, tableHit{
				entity:  Entity{Kind: EntityTable, Value: m.table.Name, Original: m.table.Name, Confidence: tableConfidence},
				matcher: m,
				pos:     loc[0],
			})
			continue
		}
		for i, re := range m.aliases {
			if loc := re.FindStringIndex(lowered); loc != nil {
				hits = append(hits, tableHit{
					entity:  Entity{Kind: EntityTable, Value: m.table.Name, Original: m.table.Aliases[i], Confidence: aliasConfidence},
					matcher: m,
					pos:     loc[0],
				})
				break
			}
		}
	}
	// Tables are reported in the order they are mentioned; the first one
	// anchors the join plan.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var mentioned []tableMatcher
	for _, h := range hits {
		entities = append(entities, h.entity)
		mentioned = append(mentioned, h.matcher)
	}

	scope := mentioned
	if len(scope) == 0 {
		scope = a.matchers
	}
	for _, m := range scope {
		for i, re := range m.columns {
			if re.MatchString(lowered) {
				entities = append(entities, Entity{
					Kind:       EntityColumn,
					Value:      m.table.Columns[i].Name,
					Table:      m.table.Name,
					Confidence: columnConfidence,
				})
			}
		}
	}

	for _, match := range quotedPattern.FindAllStringSubmatch(text, -1) {
		value := match[1]
		if value == "" {
			value = match[2]
		}
		if value == "" {
			continue
		}
		entities = append(entities, Entity{Kind: EntityValue, Value: value, Confidence: valueConfidence})
	}

	// Digits inside quoted literals belong to the literal.
	unquoted := quotedPattern.ReplaceAllString(text, " ")
	for _, num := range numberPattern.FindAllString(unquoted, -1) {
		entities = append(entities, Entity{Kind: EntityNumber, Value: num, Confidence: numberConfidence})
	}

	return entities
}

func (a *Analyzer) identifyTables(ctx context.Context, res *Analysis, lowered string) []string {
	var tables []string
	seen := map[string]bool{}
	add := func(name string) {
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			tables = append(tables, name)
		}
	}

	for _, e := range res.Entities {
		if e.Kind == EntityTable {
			add(e.Value)
		}
	}

	if len(tables) == 0 {
		for _, name := range a.inferTables(ctx, lowered) {
			add(name)
		}
		res.Inferred = len(tables) > 0
	}

	if len(tables) == 1 && anyMatch(compiledExpansion, lowered) {
		related := a.graph.RelatedTables(tables[0], 1)
		added := 0
		for _, r := range related.Direct {
			if added == maxExpansion {
				break
			}
			if !seen[strings.ToLower(r)] {
				add(r)
				added++
			}
		}
	}
	return tables
}

// inferTables guesses tables for a request that names none: domain keywords
// first, then semantic similarity.
func (a *Analyzer) inferTables(ctx context.Context, lowered string) []string {
	var out []string
	seen := map[string]bool{}
	for i, re := range compiledDomain {
		if !re.MatchString(lowered) {
			continue
		}
		for _, cand := range domainTables[i].candidates {
			if t, ok := a.graph.FindTableByAlias(cand); ok {
				if !seen[t.Name] {
					seen[t.Name] = true
					out = append(out, t.Name)
				}
				break
			}
		}
	}

	if len(out) == 0 && a.embedder != nil {
		out = a.semanticTables(ctx, lowered)
	}
	if len(out) > maxInferredTables {
		out = out[:maxInferredTables]
	}
	return out
}

func (a *Analyzer) semanticTables(ctx context.Context, lowered string) []string {
	names := a.graph.TableNames()
	if len(names) == 0 {
		return nil
	}

	vecs, err := a.embedder.Embed(ctx, append([]string{lowered}, names...))
	if err != nil {
		a.logger.Warn("semantic table matching unavailable", zap.Error(err))
		return nil
	}
	if len(vecs) != len(names)+1 {
		a.logger.Warn("embedding count mismatch",
			zap.Int("want", len(names)+1), zap.Int("got", len(vecs)))
		return nil
	}

	type scored struct {
		name string
		sim  float64
	}
	ranked := make([]scored, len(names))
	for i, name := range names {
		ranked[i] = scored{name, Cosine(vecs[0], vecs[i+1])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })

	var out []string
	for _, s := range ranked[:min(maxSemanticTables, len(ranked))] {
		if s.sim > a.minSimilarity {
			out = append(out, s.name)
		}
	}
	return out
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty, zero or the lengths differ.
func Cosine(x, y []float32) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	var dot, nx, ny float64
	for i := range x {
		dot += float64(x[i]) * float64(y[i])
		nx += float64(x[i]) * float64(x[i])
		ny += float64(y[i]) * float64(y[i])
	}
	if nx == 0 || ny == 0 {
		return 0
	}
	return dot / (math.Sqrt(nx) * math.Sqrt(ny))
}
