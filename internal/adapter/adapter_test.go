package adapter

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/sadopc/askdb/internal/schema"
)

// fakeConn serves canned metadata and records executed statements.
type fakeConn struct {
	tables   []schema.Table
	columns  map[string][]schema.Column
	fks      map[string][]schema.ForeignKey
	executed []string
	gotDB    string
	gotSch   string
}

func (f *fakeConn) Tables(_ context.Context, db, schemaName string) ([]schema.Table, error) {
	f.gotDB, f.gotSch = db, schemaName
	return f.tables, nil
}
func (f *fakeConn) Columns(_ context.Context, _, _, table string) ([]schema.Column, error) {
	return f.columns[table], nil
}
func (f *fakeConn) ForeignKeys(_ context.Context, _, _, table string) ([]schema.ForeignKey, error) {
	return f.fks[table], nil
}
func (f *fakeConn) Execute(_ context.Context, query string) (*QueryResult, error) {
	f.executed = append(f.executed, query)
	return &QueryResult{IsSelect: true}, nil
}
func (f *fakeConn) Ping(context.Context) error { return nil }
func (f *fakeConn) Close() error               { return nil }
func (f *fakeConn) DatabaseName() string       { return "shop" }
func (f *fakeConn) AdapterName() string        { return "fake" }

func withRegistry(t *testing.T) {
	t.Helper()
	orig := Registry
	t.Cleanup(func() { Registry = orig })
	Registry = map[string]Opener{}
}

func TestOpen(t *testing.T) {
	withRegistry(t)

	conn := &fakeConn{}
	var gotDSN string
	Register("fake", func(_ context.Context, dsn string) (Connection, error) {
		gotDSN = dsn
		return conn, nil
	})
	Register("broken", func(context.Context, string) (Connection, error) {
		return nil, errors.New("refused")
	})

	got, err := Open(context.Background(), "fake", "fake://shop")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if got != conn || gotDSN != "fake://shop" {
		t.Errorf("Open() = %v with dsn %q", got, gotDSN)
	}

	if _, err := Open(context.Background(), "broken", ""); err == nil || err.Error() != "refused" {
		t.Errorf("Open(broken) error = %v, want refused", err)
	}
	if _, err := Open(context.Background(), "nope", "dsn"); err == nil {
		t.Error("Open(unknown) error = nil, want error")
	}
}

func TestNames(t *testing.T) {
	withRegistry(t)

	if got := Names(); len(got) != 0 {
		t.Errorf("Names() on empty registry = %v", got)
	}
	for _, name := range []string{"sqlite", "duckdb", "postgres", "mysql"} {
		Register(name, nil)
	}
	got := Names()
	want := []string{"duckdb", "mysql", "postgres", "sqlite"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAffected(t *testing.T) {
	r := Affected(7, time.Now())
	if r.IsSelect || r.RowCount != 7 || r.Message != "7 row(s) affected" {
		t.Errorf("Affected(7) = %+v", r)
	}
	if r.Duration < 0 {
		t.Errorf("Duration = %v", r.Duration)
	}
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		name  string
		query string
		extra []string
		want  bool
	}{
		{"simple SELECT", "SELECT * FROM users", nil, true},
		{"lowercase select with leading space", "  select * from t", nil, true},
		{"WITH CTE", "WITH cte AS (SELECT 1) SELECT * FROM cte", nil, true},
		{"EXPLAIN", "EXPLAIN SELECT * FROM users", nil, true},
		{"INSERT", "INSERT INTO users (name) VALUES ('alice')", nil, false},
		{"DELETE", "DELETE FROM users WHERE id = 1", nil, false},
		{"CREATE TABLE", "CREATE TABLE foo (id int)", nil, false},
		{"line comment before SELECT", "-- comment\nSELECT 1", nil, true},
		{"block comment before SELECT", "/* comment */ SELECT 1", nil, true},
		{"line comment before INSERT", "-- comment\nINSERT INTO t VALUES (1)", nil, false},
		{"unterminated comment", "/* SELECT 1", nil, false},
		{"PRAGMA without extra", "PRAGMA table_info(users)", nil, false},
		{"PRAGMA with extra", "PRAGMA table_info(users)", []string{"PRAGMA"}, true},
		{"empty string", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReturnsRows(tt.query, tt.extra...); got != tt.want {
				t.Errorf("ReturnsRows(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	conn := &fakeConn{
		tables: []schema.Table{{Name: "customers"}, {Name: "orders"}},
		columns: map[string][]schema.Column{
			"orders": {{Name: "id", Type: "INTEGER", IsPK: true}, {Name: "customer_id", Type: "INTEGER"}},
		},
		fks: map[string][]schema.ForeignKey{
			"orders": {{Columns: []string{"customer_id"}, RefTable: "customers", RefColumns: []string{"id"}}},
		},
	}
	cat := NewCatalog(conn, "", "public")
	ctx := context.Background()

	names, err := cat.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error: %v", err)
	}
	if len(names) != 2 || names[0] != "customers" || names[1] != "orders" {
		t.Errorf("ListTables() = %v", names)
	}
	if conn.gotDB != "shop" || conn.gotSch != "public" {
		t.Errorf("Tables called with (%q, %q), want (shop, public)", conn.gotDB, conn.gotSch)
	}

	cols, err := cat.ListColumns(ctx, "orders")
	if err != nil || len(cols) != 2 {
		t.Fatalf("ListColumns() = %v, %v", cols, err)
	}

	fks, err := cat.ListForeignKeys(ctx, "orders")
	if err != nil || len(fks) != 1 || fks[0].RefTable != "customers" {
		t.Fatalf("ListForeignKeys() = %v, %v", fks, err)
	}
}

func TestCatalog_ExecuteReadOnly(t *testing.T) {
	conn := &fakeConn{}
	cat := NewCatalog(conn, "shop", "")
	ctx := context.Background()

	if _, err := cat.ExecuteReadOnly(ctx, "SELECT COUNT(*) FROM orders"); err != nil {
		t.Fatalf("ExecuteReadOnly(SELECT) error: %v", err)
	}
	if _, err := cat.ExecuteReadOnly(ctx, "DELETE FROM orders"); !errors.Is(err, ErrNotReadOnly) {
		t.Errorf("ExecuteReadOnly(DELETE) error = %v, want ErrNotReadOnly", err)
	}
	if len(conn.executed) != 1 {
		t.Errorf("executed %d statements, want 1", len(conn.executed))
	}

	empty := &Catalog{}
	if _, err := empty.ExecuteReadOnly(ctx, "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ExecuteReadOnly without connection error = %v, want ErrNotConnected", err)
	}
}

func TestNormalizeValue(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	moment := time.Date(2025, 3, 1, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bytes", []byte("abc"), "abc"},
		{"int32", int32(7), int64(7)},
		{"uint8", uint8(3), int64(3)},
		{"float32", float32(1.5), float64(1.5)},
		{"bool", true, true},
		{"big int", big.NewInt(42), int64(42)},
		{"date", day, "2025-03-01"},
		{"timestamp", moment, "2025-03-01 14:05:09"},
		{"huge uint64", uint64(1 << 63), "9223372036854775808"},
		{"other", struct{ A int }{1}, "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeValue(tt.in); got != tt.want {
				t.Errorf("NormalizeValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestQueryResult_ColumnNames(t *testing.T) {
	r := &QueryResult{Columns: []ColumnMeta{{Name: "id"}, {Name: "email"}}}
	got := r.ColumnNames()
	if len(got) != 2 || got[0] != "id" || got[1] != "email" {
		t.Errorf("ColumnNames() = %v", got)
	}
}

func TestErrors(t *testing.T) {
	errs := []error{ErrNotConnected, ErrCancelled, ErrNotReadOnly}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v and %v should be distinct", a, b)
			}
		}
	}
}
