package highlight

import (
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"

	"github.com/sadopc/askdb/internal/theme"
)

// lipgloss renders without escape codes when there is no TTY, so these
// tests check that content survives rather than the colours applied.

func TestNew(t *testing.T) {
	for _, dialect := range []string{"postgres", "mysql", "sqlite", "duckdb", ""} {
		h := New(dialect)
		if h == nil || h.lexer == nil {
			t.Fatalf("New(%q) returned no lexer", dialect)
		}
	}
}

func TestHighlight_PreservesContent(t *testing.T) {
	sql := "SELECT orders.id, COUNT(*) FROM orders LEFT JOIN customers ON orders.customer_id = customers.id WHERE customers.name LIKE '%Al%' LIMIT 10"
	for _, dialect := range []string{"postgres", "mysql", "sqlite"} {
		t.Run(dialect, func(t *testing.T) {
			got := New(dialect).Highlight(sql, theme.Default())
			for _, want := range []string{"SELECT", "LEFT", "JOIN", "customers.id", "'%Al%'", "10"} {
				if !strings.Contains(got, want) {
					t.Errorf("highlighted output missing %q: %q", want, got)
				}
			}
		})
	}
}

func TestHighlight_NilTheme(t *testing.T) {
	sql := "SELECT 1"
	if got := New("sqlite").Highlight(sql, nil); got != sql {
		t.Errorf("Highlight(sql, nil) = %q, want %q", got, sql)
	}
}

func TestHighlight_Empty(t *testing.T) {
	if got := New("sqlite").Highlight("", theme.Default()); got != "" {
		t.Errorf("Highlight(\"\") = %q, want empty", got)
	}
}

func TestHighlight_KeepsNewlines(t *testing.T) {
	sql := "SELECT id\nFROM users\n-- trailing comment\n"
	got := New("postgres").Highlight(sql, theme.Default())
	if strings.Count(got, "\n") != strings.Count(sql, "\n") {
		t.Errorf("newline count changed: got %q", got)
	}
}

func TestStyleFor(t *testing.T) {
	th := theme.Default()
	tests := []struct {
		tt     chroma.TokenType
		styled bool
	}{
		{chroma.Keyword, true},
		{chroma.KeywordType, true},
		{chroma.LiteralStringSingle, true},
		{chroma.LiteralNumberInteger, true},
		{chroma.CommentSingle, true},
		{chroma.Operator, true},
		{chroma.NameFunction, true},
		{chroma.Name, false},
		{chroma.Text, false},
		{chroma.Punctuation, false},
	}
	for _, tt := range tests {
		if _, ok := styleFor(tt.tt, th); ok != tt.styled {
			t.Errorf("styleFor(%v) styled = %v, want %v", tt.tt, ok, tt.styled)
		}
	}
}
