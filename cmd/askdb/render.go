package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/engine"
	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/history"
	"github.com/sadopc/askdb/internal/result"
	"github.com/sadopc/askdb/internal/theme"
)

const maxCellWidth = 50

// renderAnswer prints the statement, the rows and the summary of an answer,
// or the error and the statement that failed.
func renderAnswer(w io.Writer, rt *runtime, ans *engine.Answer, err error) {
	th := rt.theme
	if err != nil {
		fmt.Fprintln(w, th.ErrorText.Render("Error: "+err.Error()))
		if sql := apperrors.AttemptedSQL(err); sql != "" {
			fmt.Fprintln(w, th.Label.Render("SQL: ")+rt.highlighter.Highlight(sql, th))
		}
		var nt *apperrors.NoTablesResolvedError
		if errors.As(err, &nt) {
			fmt.Fprintln(w, th.MutedText.Render("Try `askdb suggest` to see which tables are available."))
		}
		return
	}
	if ans == nil {
		return
	}

	fmt.Fprintln(w, th.Label.Render("SQL: ")+rt.highlighter.Highlight(ans.SQL, th))
	for _, warn := range ans.Warnings {
		fmt.Fprintln(w, th.WarningText.Render("warning: "+warn))
	}
	if ans.Limited {
		fmt.Fprintln(w, th.MutedText.Render("Large table: results were limited"))
	}

	if ans.Modification {
		fmt.Fprintln(w, th.SuccessText.Render(fmt.Sprintf("%d row(s) affected", ans.AffectedRows)))
		return
	}
	if ans.Result == nil {
		return
	}
	if len(ans.Result.Columns) > 0 {
		fmt.Fprintln(w, renderTable(th, ans.Result))
	}

	footer := ans.Result.Summary
	meta := []string{formatDuration(ans.Duration), fmt.Sprintf("confidence %.0f%%", ans.Confidence*100)}
	if ans.Cached {
		meta = append(meta, "cached")
	}
	fmt.Fprintln(w, th.SuccessText.Render(footer)+" "+th.MutedText.Render("("+strings.Join(meta, ", ")+")"))
}

// renderTable draws a bordered result table. Cells wider than maxCellWidth
// are truncated and nulls use the theme's null style.
func renderTable(th *theme.Theme, res *result.Result) string {
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = runewidth.Truncate(c, maxCellWidth, "…")
	}
	rows := res.Strings()
	for _, row := range rows {
		for j, text := range row {
			row[j] = runewidth.Truncate(flattenCell(text), maxCellWidth, "…")
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.TableHeader
			}
			if row >= 0 && row < len(res.Records) && col < len(res.Records[row].Values) &&
				res.Records[row].Values[col].IsNull() {
				return th.TableNull
			}
			return th.TableCell
		})
	return t.String()
}

// flattenCell keeps multi-line values on one table line.
func flattenCell(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

// formatDuration formats a duration for human display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func renderExplanation(w io.Writer, rt *runtime, ex *engine.Explanation) {
	if ex == nil {
		return
	}
	th := rt.theme
	fmt.Fprintln(w, th.Title.Render(ex.Question))
	for _, step := range ex.Steps {
		fmt.Fprintln(w, "  "+th.Value.Render(step))
	}
	if ex.SQL != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, rt.highlighter.Highlight(ex.SQL, th))
	}
	if clauses := ex.Plan.Clauses(); len(clauses) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, th.Label.Render("Joins:"))
		for _, c := range clauses {
			fmt.Fprintln(w, "  "+th.SchemaEdge.Render(c))
		}
	}
	for _, warn := range ex.Warnings {
		fmt.Fprintln(w, th.WarningText.Render("warning: "+warn))
	}
	if ex.Rejection != "" {
		fmt.Fprintln(w, th.ErrorText.Render("would be rejected: "+ex.Rejection))
	}
}

func renderSchema(w io.Writer, rt *runtime, export graph.Export) {
	th := rt.theme
	for _, t := range export.Tables {
		title := th.SchemaTable.Render(t.Name)
		if len(t.Aliases) > 0 {
			title += " " + th.MutedText.Render("("+strings.Join(t.Aliases, ", ")+")")
		}
		fmt.Fprintln(w, title)
		for _, c := range t.Columns {
			line := "  " + th.SchemaColumn.Render(c.Name) + " " + th.SchemaType.Render(c.Type)
			if c.PrimaryKey {
				line += " " + th.WarningText.Render("PK")
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(export.Relationships) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, th.Title.Render("Relationships"))
	for _, e := range export.Relationships {
		fmt.Fprintf(w, "  %s %s\n",
			th.SchemaEdge.Render(fmt.Sprintf("%s(%s) -> %s(%s)",
				e.From, strings.Join(e.FromColumns, ", "), e.To, strings.Join(e.ToColumns, ", "))),
			th.MutedText.Render(string(e.Kind)))
	}
}

func renderSuggestions(w io.Writer, rt *runtime, s *engine.Suggestions) {
	th := rt.theme
	if len(s.Tables) == 0 {
		fmt.Fprintln(w, th.MutedText.Render("No matching tables"))
	} else {
		fmt.Fprintln(w, th.Title.Render("Tables"))
		for _, t := range s.Tables {
			rows := "?"
			if t.RowCount >= 0 {
				rows = fmt.Sprintf("%d", t.RowCount)
			}
			line := "  " + th.SchemaTable.Render(t.Name) + " " + th.MutedText.Render(rows+" rows")
			if len(t.Aliases) > 0 {
				line += " " + th.MutedText.Render("aka "+strings.Join(t.Aliases, ", "))
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(s.Columns) > 0 {
		fmt.Fprintln(w, th.Title.Render("Columns"))
		for _, c := range s.Columns {
			fmt.Fprintln(w, "  "+th.SchemaColumn.Render(c.Table+"."+c.Name)+" "+th.SchemaType.Render(c.Type))
		}
	}
	if rel := s.Relationships; len(rel.Direct)+len(rel.Indirect) > 0 {
		fmt.Fprintln(w, th.Title.Render("Related"))
		if len(rel.Direct) > 0 {
			fmt.Fprintln(w, "  "+th.Label.Render("direct: ")+th.Value.Render(strings.Join(rel.Direct, ", ")))
		}
		if len(rel.Indirect) > 0 {
			fmt.Fprintln(w, "  "+th.Label.Render("indirect: ")+th.Value.Render(strings.Join(rel.Indirect, ", ")))
		}
	}
	if len(s.SampleQuestions) > 0 {
		fmt.Fprintln(w, th.Title.Render("Try"))
		for _, q := range s.SampleQuestions {
			fmt.Fprintln(w, "  "+th.Value.Render(q))
		}
	}
}

func renderHistory(w io.Writer, rt *runtime, entries []history.Entry) {
	th := rt.theme
	if len(entries) == 0 {
		fmt.Fprintln(w, th.MutedText.Render("No history"))
		return
	}
	for _, e := range entries {
		status := th.SuccessText
		switch e.Status {
		case history.StatusFailed, history.StatusRejected:
			status = th.ErrorText
		case history.StatusCached:
			status = th.MutedText
		}
		fmt.Fprintf(w, "%s %s %s\n",
			th.MutedText.Render(e.ExecutedAt.Local().Format("2006-01-02 15:04:05")),
			status.Render(fmt.Sprintf("[%s]", e.Status)),
			th.Value.Render(e.Question))
		if e.SQL != "" {
			fmt.Fprintln(w, "    "+rt.highlighter.Highlight(e.SQL, th))
		}
		if e.Error != "" {
			fmt.Fprintln(w, "    "+th.ErrorText.Render(e.Error))
		}
	}
}
