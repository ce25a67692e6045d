// Package history records every translation askdb performs in a local
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS translations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id    TEXT NOT NULL,
	question      TEXT NOT NULL,
	generated_sql TEXT,
	tables        TEXT,
	intent        TEXT,
	confidence    REAL,
	adapter       TEXT,
	database_name TEXT,
	executed_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms   INTEGER,
	row_count     INTEGER,
	status        TEXT NOT NULL,
	error         TEXT
)`

// Status is the outcome of a translation.
type Status string

const (
	StatusOK       Status = "ok"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
	StatusCached   Status = "cached"
)

// Entry is one recorded translation.
type Entry struct {
	ID           int64
	RequestID    string
	Question     string
	SQL          string
	Tables       []string
	Intent       string
	Confidence   float64
	Adapter      string
	DatabaseName string
	ExecutedAt   time.Time
	DurationMS   int64
	RowCount     int64
	Status       Status
	Error        string
}

// History provides SQLite-backed translation history storage.
type History struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// A single writer keeps SQLite from reporting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	return &History{db: db}, nil
}

// Add inserts a new history entry. A zero ExecutedAt is set to now.
func (h *History) Add(ctx context.Context, e Entry) error {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO translations (request_id, question, generated_sql, tables, intent, confidence,
		 adapter, database_name, executed_at, duration_ms, row_count, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID,
		e.Question,
		e.SQL,
		strings.Join(e.Tables, ","),
		e.Intent,
		e.Confidence,
		e.Adapter,
		e.DatabaseName,
		e.ExecutedAt.UTC(),
		e.DurationMS,
		e.RowCount,
		string(e.Status),
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, request_id, question, generated_sql, tables, intent, confidence,
	adapter, database_name, executed_at, duration_ms, row_count, status, error
	FROM translations`

// Search returns entries whose question or statement matches pattern
// using SQL LIKE, most recent first, limited to limit rows.
func (h *History) Search(ctx context.Context, pattern string, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		selectColumns+`
		 WHERE question LIKE ? OR generated_sql LIKE ?
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recent entries, limited to limit rows.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		selectColumns+`
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Clear deletes all history entries.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM translations`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// scanEntries reads all rows from the result set into a slice of Entry.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                                   Entry
			stmt, tables, intent, adapter, name sql.NullString
			errText                             sql.NullString
			status                              string
			confidence                          sql.NullFloat64
			duration, count                     sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID,
			&e.RequestID,
			&e.Question,
			&stmt,
			&tables,
			&intent,
			&confidence,
			&adapter,
			&name,
			&e.ExecutedAt,
			&duration,
			&count,
			&status,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		e.SQL = stmt.String
		if tables.String != "" {
			e.Tables = strings.Split(tables.String, ",")
		}
		e.Intent = intent.String
		e.Confidence = confidence.Float64
		e.Adapter = adapter.String
		e.DatabaseName = name.String
		e.DurationMS = duration.Int64
		e.RowCount = count.Int64
		e.Status = Status(status)
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
