package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sadopc/askdb/internal/adapter"
)

func TestRegistration(t *testing.T) {
	if _, ok := adapter.Registry["sqlite"]; !ok {
		t.Fatal("sqlite adapter not found in registry")
	}
	conn, err := adapter.Open(context.Background(), "sqlite", "")
	if err != nil {
		t.Fatalf("Open(sqlite, \"\") error: %v", err)
	}
	defer conn.Close()
	if got := conn.DatabaseName(); got != ":memory:" {
		t.Errorf("empty DSN DatabaseName() = %q, want :memory:", got)
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"sqlite:// prefix stripped", "sqlite:///path/to/file.db", "/path/to/file.db"},
		{"file: prefix stripped", "file:test.db", "test.db"},
		{"memory unchanged", ":memory:", ":memory:"},
		{"relative path unchanged", "relative/path.db", "relative/path.db"},
		{"sqlite:// relative path", "sqlite://data.db", "data.db"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeDSN(tt.dsn)
			if got != tt.want {
				t.Errorf("normalizeDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func openMemory(t *testing.T) adapter.Connection {
	t.Helper()
	conn, err := open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Connect(:memory:) error: %v", err)
	}
	return conn
}

func mustExec(t *testing.T, conn adapter.Connection, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := conn.Execute(context.Background(), s); err != nil {
			t.Fatalf("Execute(%q) error: %v", s, err)
		}
	}
}

func TestConnect_InMemory(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	if err := conn.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
	if got := conn.AdapterName(); got != "sqlite" {
		t.Errorf("AdapterName() = %q, want %q", got, "sqlite")
	}
	if got := conn.DatabaseName(); got != ":memory:" {
		t.Errorf("DatabaseName() = %q, want %q", got, ":memory:")
	}
}

func TestConnect_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")
	conn, err := open(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer conn.Close()

	if got := conn.DatabaseName(); got != "shop.db" {
		t.Errorf("DatabaseName() = %q, want %q", got, "shop.db")
	}
}

func TestExecute_TypedValues(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	mustExec(t, conn,
		"CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price REAL, note TEXT)",
		"INSERT INTO products (name, price, note) VALUES ('Widget', 9.5, NULL)",
		"INSERT INTO products (name, price, note) VALUES ('Gadget', 12.25, 'new')",
	)

	result, err := conn.Execute(context.Background(), "SELECT id, name, price, note FROM products ORDER BY id")
	if err != nil {
		t.Fatalf("SELECT error: %v", err)
	}
	if !result.IsSelect {
		t.Error("SELECT should be IsSelect")
	}
	if result.RowCount != 2 {
		t.Fatalf("SELECT RowCount = %d, want 2", result.RowCount)
	}
	if len(result.Columns) != 4 || result.Columns[1].Name != "name" {
		t.Fatalf("Columns = %+v", result.Columns)
	}

	row := result.Rows[0]
	if row[0] != int64(1) {
		t.Errorf("Row[0][0] = %#v, want int64(1)", row[0])
	}
	if row[1] != "Widget" {
		t.Errorf("Row[0][1] = %#v, want %q", row[1], "Widget")
	}
	if row[2] != 9.5 {
		t.Errorf("Row[0][2] = %#v, want 9.5", row[2])
	}
	if row[3] != nil {
		t.Errorf("Row[0][3] = %#v, want nil", row[3])
	}
}

func TestExecute_NonSelect(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE counters (id INTEGER PRIMARY KEY, val INTEGER)")

	result, err := conn.Execute(ctx, "INSERT INTO counters (val) VALUES (10)")
	if err != nil {
		t.Fatalf("INSERT error: %v", err)
	}
	if result.IsSelect {
		t.Error("INSERT result should have IsSelect=false")
	}
	if result.RowCount != 1 {
		t.Errorf("INSERT RowCount = %d, want 1", result.RowCount)
	}
	if result.Message != "1 row(s) affected" {
		t.Errorf("INSERT Message = %q", result.Message)
	}
}

func TestExecute_PragmaIsSelect(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	result, err := conn.Execute(context.Background(), "PRAGMA table_info('sqlite_master')")
	if err != nil {
		t.Fatalf("PRAGMA error: %v", err)
	}
	if !result.IsSelect {
		t.Error("PRAGMA should be treated as IsSelect=true")
	}
}

func TestTables_InMemory(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	ctx := context.Background()

	tables, err := conn.Tables(ctx, ":memory:", "main")
	if err != nil {
		t.Fatalf("Tables() error: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Tables() initially returned %d tables, want 0", len(tables))
	}

	mustExec(t, conn,
		"CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, product_id INTEGER)",
	)

	tables, err = conn.Tables(ctx, ":memory:", "main")
	if err != nil {
		t.Fatalf("Tables() error: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("Tables() returned %d tables, want 2", len(tables))
	}
	if tables[0].Name != "orders" || tables[1].Name != "products" {
		t.Errorf("Tables() = %v, want [orders products]", tables)
	}
}

func TestColumns_InMemory(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	mustExec(t, conn, `CREATE TABLE items (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL,
		quantity INTEGER DEFAULT 0
	)`)

	cols, err := conn.Columns(context.Background(), ":memory:", "main", "items")
	if err != nil {
		t.Fatalf("Columns() error: %v", err)
	}

	expected := []struct {
		name     string
		colType  string
		nullable bool
		isPK     bool
	}{
		// PRAGMA table_info reports notNull=0 for the INTEGER PRIMARY KEY rowid alias.
		{"id", "INTEGER", true, true},
		{"name", "TEXT", false, false},
		{"price", "REAL", true, false},
		{"quantity", "INTEGER", true, false},
	}

	if len(cols) != len(expected) {
		t.Fatalf("Columns() returned %d columns, want %d", len(cols), len(expected))
	}
	for i, exp := range expected {
		col := cols[i]
		if col.Name != exp.name || col.Type != exp.colType || col.Nullable != exp.nullable || col.IsPK != exp.isPK {
			t.Errorf("Column[%d] = %+v, want %+v", i, col, exp)
		}
	}
}

func TestForeignKeys_InMemory(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	mustExec(t, conn,
		"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, buyer INTEGER REFERENCES customers(id), note TEXT)",
	)

	fks, err := conn.ForeignKeys(context.Background(), ":memory:", "main", "orders")
	if err != nil {
		t.Fatalf("ForeignKeys() error: %v", err)
	}
	if len(fks) != 1 {
		t.Fatalf("ForeignKeys() returned %d, want 1", len(fks))
	}

	fk := fks[0]
	if fk.RefTable != "customers" {
		t.Errorf("FK RefTable = %q, want %q", fk.RefTable, "customers")
	}
	if len(fk.Columns) != 1 || fk.Columns[0] != "buyer" {
		t.Errorf("FK Columns = %v, want [buyer]", fk.Columns)
	}
	if len(fk.RefColumns) != 1 || fk.RefColumns[0] != "id" {
		t.Errorf("FK RefColumns = %v, want [id]", fk.RefColumns)
	}
}

func TestInMemory_ConcurrentReaders(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	mustExec(t, conn,
		"CREATE TABLE events (id INTEGER PRIMARY KEY)",
		"INSERT INTO events DEFAULT VALUES",
	)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := conn.Execute(context.Background(), "SELECT COUNT(*) FROM events")
			if err != nil {
				errs <- err
				return
			}
			if res.Rows[0][0] != int64(1) {
				t.Errorf("COUNT(*) = %#v, want 1", res.Rows[0][0])
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent SELECT error: %v", err)
	}
}

func TestForeignKeys_CompositeAndImplicitTarget(t *testing.T) {
	conn := openMemory(t)
	defer conn.Close()

	mustExec(t, conn,
		"CREATE TABLE stock (warehouse_id INTEGER, product_id INTEGER, qty INTEGER, PRIMARY KEY (warehouse_id, product_id))",
		"CREATE TABLE suppliers (id INTEGER PRIMARY KEY)",
		`CREATE TABLE lines (
			id INTEGER PRIMARY KEY,
			warehouse_id INTEGER,
			product_id INTEGER,
			supplier INTEGER REFERENCES suppliers,
			FOREIGN KEY (warehouse_id, product_id) REFERENCES stock (warehouse_id, product_id)
		)`,
	)

	fks, err := conn.ForeignKeys(context.Background(), "", "", "lines")
	if err != nil {
		t.Fatalf("ForeignKeys() error: %v", err)
	}
	if len(fks) != 2 {
		t.Fatalf("ForeignKeys() returned %d, want 2: %+v", len(fks), fks)
	}

	byTable := map[string]int{}
	for i, fk := range fks {
		byTable[fk.RefTable] = i
		if !strings.HasPrefix(fk.Name, "fk_lines_") {
			t.Errorf("FK name = %q, want fk_lines_ prefix", fk.Name)
		}
	}
	stock := fks[byTable["stock"]]
	if len(stock.Columns) != 2 || stock.Columns[0] != "warehouse_id" || stock.RefColumns[1] != "product_id" {
		t.Errorf("stock FK = %+v", stock)
	}
	supplier := fks[byTable["suppliers"]]
	if len(supplier.RefColumns) != 1 || supplier.RefColumns[0] != "" {
		t.Errorf("suppliers FK RefColumns = %q, want [\"\"] for the implicit primary key", supplier.RefColumns)
	}
}
