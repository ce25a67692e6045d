package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/schema"
)

func shopGraph() *graph.Graph {
	pk := schema.Column{Name: "id", Type: "INTEGER", IsPK: true}
	return graph.New([]schema.Table{
		{Name: "customers", Columns: []schema.Column{pk, {Name: "name", Type: "TEXT"}, {Name: "email", Type: "TEXT"}, {Name: "created_at", Type: "TIMESTAMP"}}},
		{Name: "orders", Columns: []schema.Column{pk, {Name: "customer_id", Type: "INTEGER"}, {Name: "total", Type: "REAL"}, {Name: "status", Type: "TEXT"}}},
		{Name: "products", Columns: []schema.Column{pk, {Name: "name", Type: "TEXT"}, {Name: "price", Type: "REAL"}}},
	}, nil)
}

func analyze(t *testing.T, text string, opts ...Option) *Analysis {
	t.Helper()
	return New(shopGraph(), opts...).Analyze(context.Background(), text)
}

func TestAnalyze_CountScenario(t *testing.T) {
	res := analyze(t, "how many customers are there")

	assert.Equal(t, IntentCount, res.Intent)
	assert.Equal(t, []string{"how many"}, res.Keywords)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, Entity{Kind: EntityTable, Value: "customers", Original: "customers", Confidence: 0.9}, res.Entities[0])
	assert.Equal(t, []string{"customers"}, res.Tables)
}

func TestAnalyze_WithIsNotAJoinKeyword(t *testing.T) {
	res := analyze(t, "show orders with customers")

	assert.Equal(t, IntentList, res.Intent)
	tables := res.EntitiesOf(EntityTable)
	require.Len(t, tables, 2)
	assert.Equal(t, []string{"orders", "customers"}, res.Tables)
}

func TestAnalyze_IntentPrecedence(t *testing.T) {
	tests := []struct {
		text        string
		intent      Intent
		aggregation string
	}{
		{"list products", IntentList, ""},
		{"count the orders", IntentCount, "COUNT"},
		{"average price of products", IntentAggregate, "AVG"},
		{"max total of orders", IntentAggregate, "MAX"},
		{"total amount by status", IntentGroupBy, ""},
		{"sum of totals per customer", IntentGroupBy, "SUM"},
		{"show orders joined with customers", IntentJoin, ""},
		{"products along with their orders", IntentJoin, ""},
		{"show the byline of orders", IntentList, ""},
		{"minimum stock", IntentList, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := analyze(t, tt.text)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.aggregation, res.Aggregation)
		})
	}
}

func TestAnalyze_ConfidenceIsClamped(t *testing.T) {
	res := analyze(t, "show list get display find count total")
	assert.Equal(t, 1.0, res.Confidence)

	res = analyze(t, "hello there")
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, IntentList, res.Intent)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Tables)
}

func TestAnalyze_AliasEntity(t *testing.T) {
	res := analyze(t, "list all clients")

	tables := res.EntitiesOf(EntityTable)
	require.Len(t, tables, 1)
	assert.Equal(t, "customers", tables[0].Value)
	assert.Equal(t, "client", tables[0].Original)
	assert.Equal(t, 0.8, tables[0].Confidence)
}

func TestAnalyze_ColumnsValuesAndNumbers(t *testing.T) {
	res := analyze(t, `find customers where name is "Ada 2" and id 42`)

	cols := res.EntitiesOf(EntityColumn)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Value)
	assert.Equal(t, "name", cols[1].Value)
	assert.Equal(t, "customers", cols[1].Table)
	assert.Equal(t, 0.7, cols[1].Confidence)

	values := res.EntitiesOf(EntityValue)
	require.Len(t, values, 1)
	assert.Equal(t, "Ada 2", values[0].Value)
	assert.Equal(t, 0.9, values[0].Confidence)

	numbers := res.EntitiesOf(EntityNumber)
	require.Len(t, numbers, 1)
	assert.Equal(t, "42", numbers[0].Value)
	assert.Equal(t, 0.8, numbers[0].Confidence)

	// "and" with a single resolved table pulls in its neighbours.
	assert.Equal(t, []string{"customers", "orders"}, res.Tables)
}

func TestAnalyze_ColumnWrittenWithSpaces(t *testing.T) {
	res := analyze(t, "show customers sorted on created at")

	cols := res.EntitiesOf(EntityColumn)
	require.Len(t, cols, 1)
	assert.Equal(t, "created_at", cols[0].Value)
}

func TestAnalyze_ColumnsScopedToMentionedTables(t *testing.T) {
	res := analyze(t, "show products name")
	cols := res.EntitiesOf(EntityColumn)
	require.Len(t, cols, 1)
	assert.Equal(t, "products", cols[0].Table)

	res = analyze(t, "what is the name")
	cols = res.EntitiesOf(EntityColumn)
	require.Len(t, cols, 2)
	assert.Equal(t, "customers", cols[0].Table)
	assert.Equal(t, "products", cols[1].Table)
}

func TestAnalyze_DecimalNumbers(t *testing.T) {
	res := analyze(t, "orders with total 19.99")
	numbers := res.EntitiesOf(EntityNumber)
	require.Len(t, numbers, 1)
	assert.Equal(t, "19.99", numbers[0].Value)
}

func TestAnalyze_DomainKeywordInference(t *testing.T) {
	pk := schema.Column{Name: "id", Type: "INTEGER", IsPK: true}
	g := graph.New([]schema.Table{
		{Name: "users", Columns: []schema.Column{pk}},
		{Name: "purchases", Columns: []schema.Column{pk, {Name: "user_id", Type: "INTEGER"}}},
	}, nil)

	res := New(g).Analyze(context.Background(), "show every customer order")
	assert.Equal(t, []string{"users", "purchases"}, res.Tables)
	assert.True(t, res.Inferred)
	assert.Empty(t, res.EntitiesOf(EntityTable))
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func weatherGraph() *graph.Graph {
	pk := schema.Column{Name: "id", Type: "INTEGER", IsPK: true}
	return graph.New([]schema.Table{
		{Name: "weather_readings", Columns: []schema.Column{pk}},
		{Name: "stations", Columns: []schema.Column{pk}},
		{Name: "maintenance_logs", Columns: []schema.Column{pk}},
	}, nil)
}

func TestAnalyze_SemanticFallback(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"what was the temperature yesterday": {1, 0},
		"weather_readings":                   {0.9, 0.1},
		"stations":                           {0.5, 0.5},
		"maintenance_logs":                   {0, 1},
	}}

	res := New(weatherGraph(), WithEmbedder(emb)).Analyze(context.Background(), "What was the temperature yesterday")
	assert.Equal(t, []string{"weather_readings", "stations"}, res.Tables)
	assert.True(t, res.Inferred)
	assert.Equal(t, 1, emb.calls)

	res = New(weatherGraph(), WithEmbedder(emb), WithMinSimilarity(0.8)).Analyze(context.Background(), "what was the temperature yesterday")
	assert.Equal(t, []string{"weather_readings"}, res.Tables)
}

func TestAnalyze_SemanticFailureDegrades(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("endpoint down")}

	res := New(weatherGraph(), WithEmbedder(emb)).Analyze(context.Background(), "what was the temperature yesterday")
	assert.Empty(t, res.Tables)
	assert.False(t, res.Inferred)
	assert.Equal(t, IntentList, res.Intent)
}

func TestAnalyze_SemanticSkippedWhenKeywordsResolve(t *testing.T) {
	emb := &fakeEmbedder{}
	res := New(shopGraph(), WithEmbedder(emb)).Analyze(context.Background(), "what did each customer buy")
	assert.Equal(t, []string{"customers"}, res.Tables)
	assert.Zero(t, emb.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestMentionsAll(t *testing.T) {
	assert.True(t, MentionsAll("show all orders"))
	assert.False(t, MentionsAll("show small orders"))
	assert.False(t, MentionsAll("show allocations"))
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	a := New(shopGraph())
	done := make(chan *Analysis, 16)
	for range 16 {
		go func() { done <- a.Analyze(context.Background(), "how many orders per customer") }()
	}
	for range 16 {
		res := <-done
		assert.Equal(t, IntentGroupBy, res.Intent)
	}
}
