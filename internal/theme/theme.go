// Package theme holds the lipgloss styles askdb uses for terminal output:
// highlighted SQL, result tables, schema listings and status lines.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds a lipgloss.Style for every element askdb prints.
type Theme struct {
	Name string

	// SQL syntax highlighting
	SQLKeyword  lipgloss.Style
	SQLString   lipgloss.Style
	SQLNumber   lipgloss.Style
	SQLComment  lipgloss.Style
	SQLOperator lipgloss.Style
	SQLFunction lipgloss.Style
	SQLType     lipgloss.Style

	// Result tables
	TableBorder lipgloss.Style
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableNull   lipgloss.Style

	// Schema listings
	SchemaTable  lipgloss.Style
	SchemaColumn lipgloss.Style
	SchemaType   lipgloss.Style
	SchemaEdge   lipgloss.Style

	// Labels and status lines
	Title       lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	MutedText   lipgloss.Style
}

// palette is the handful of colours a theme is derived from.
type palette struct {
	name     string
	text     string
	muted    string
	border   string
	keyword  string
	str      string
	number   string
	comment  string
	operator string
	function string
	typ      string
	accent   string
	ok       string
	warn     string
	bad      string
}

func fg(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

func build(p palette) *Theme {
	return &Theme{
		Name: p.name,

		SQLKeyword:  fg(p.keyword).Bold(true),
		SQLString:   fg(p.str),
		SQLNumber:   fg(p.number),
		SQLComment:  fg(p.comment).Italic(true),
		SQLOperator: fg(p.operator),
		SQLFunction: fg(p.function),
		SQLType:     fg(p.typ),

		TableBorder: fg(p.border),
		TableHeader: fg(p.keyword).Bold(true).PaddingLeft(1).PaddingRight(1),
		TableCell:   fg(p.text).PaddingLeft(1).PaddingRight(1),
		TableNull:   fg(p.muted).Italic(true).PaddingLeft(1).PaddingRight(1),

		SchemaTable:  fg(p.typ).Bold(true),
		SchemaColumn: fg(p.text),
		SchemaType:   fg(p.muted).Italic(true),
		SchemaEdge:   fg(p.function),

		Title:       fg(p.accent).Bold(true),
		Label:       fg(p.keyword).Bold(true),
		Value:       fg(p.text),
		ErrorText:   fg(p.bad).Bold(true),
		SuccessText: fg(p.ok),
		WarningText: fg(p.warn),
		MutedText:   fg(p.muted),
	}
}

// Themes maps theme names to their definitions.
var Themes = map[string]*Theme{
	"default": build(palette{
		name: "default", text: "#D4D4D4", muted: "#808080", border: "#3C3C3C",
		keyword: "#569CD6", str: "#CE9178", number: "#B5CEA8", comment: "#6A9955",
		operator: "#D4D4D4", function: "#DCDCAA", typ: "#4EC9B0", accent: "#569CD6",
		ok: "#6A9955", warn: "#CCA700", bad: "#F44747",
	}),
	"light": build(palette{
		name: "light", text: "#1E1E1E", muted: "#A0A0A0", border: "#D4D4D4",
		keyword: "#0000FF", str: "#A31515", number: "#098658", comment: "#008000",
		operator: "#1E1E1E", function: "#795E26", typ: "#267F99", accent: "#0451A5",
		ok: "#008000", warn: "#BF8803", bad: "#CD3131",
	}),
	"monokai": build(palette{
		name: "monokai", text: "#F8F8F2", muted: "#75715E", border: "#49483E",
		keyword: "#F92672", str: "#E6DB74", number: "#AE81FF", comment: "#75715E",
		operator: "#F92672", function: "#A6E22E", typ: "#66D9EF", accent: "#F92672",
		ok: "#A6E22E", warn: "#E6DB74", bad: "#F92672",
	}),
}

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name, or the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
