package result

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/askdb/internal/adapter"
)

func people() *Result {
	return Format(&adapter.QueryResult{
		Columns: []adapter.ColumnMeta{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}, {Name: "email", Type: "TEXT"}},
		Rows: [][]any{
			{int64(1), "Alice", "alice@example.com"},
			{int64(2), "Bob", nil},
			{int64(3), "Charlie, Jr.", "charlie@example.com"},
		},
	})
}

// --- CSV Tests ---

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := people().WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}

	// 1 header + 3 data rows.
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "id,name,email" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[2][2] != "" {
		t.Fatalf("expected empty field for NULL, got %q", records[2][2])
	}
	if records[3][1] != "Charlie, Jr." {
		t.Fatalf("expected quoted comma to survive, got %q", records[3][1])
	}
}

func TestWriteCSV_EmptyRows(t *testing.T) {
	res := Format(&adapter.QueryResult{Columns: []adapter.ColumnMeta{{Name: "id"}, {Name: "name"}}})

	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if got := buf.String(); got != "id,name\n" {
		t.Fatalf("expected header only, got %q", got)
	}
}

// --- JSON Tests ---

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := people().WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &objects); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(objects))
	}
	if objects[0]["id"] != float64(1) {
		t.Fatalf("expected numeric id, got %#v", objects[0]["id"])
	}
	if objects[1]["email"] != nil {
		t.Fatalf("expected null email, got %#v", objects[1]["email"])
	}
	if objects[2]["name"] != "Charlie, Jr." {
		t.Fatalf("unexpected name: %#v", objects[2]["name"])
	}
}

func TestWriteJSON_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Format(nil).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	if err := people().Write(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{FormatCSV, FormatJSON} {
		path := filepath.Join(dir, "people."+format)
		if err := ExportFile(path, format, people()); err != nil {
			t.Fatalf("ExportFile(%s) failed: %v", format, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if !strings.Contains(string(data), "alice@example.com") {
			t.Fatalf("%s export missing data: %s", format, data)
		}
	}

	if err := ExportFile(filepath.Join(dir, "missing", "x.csv"), FormatCSV, people()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
