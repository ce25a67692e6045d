// Package audit keeps a JSON Lines trail of every statement askdb ran or
// refused to run. Records go through a dedicated zap core so they share the
// encoder settings of the application log without mixing into it.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sadopc/askdb/internal/logging"
)

// Outcome classifies an audited statement.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Severity grades an outcome for alerting.
func (o Outcome) Severity() string {
	switch o {
	case OutcomeRejected:
		return "warning"
	case OutcomeFailed:
		return "error"
	default:
		return "info"
	}
}

func (o Outcome) level() zapcore.Level {
	switch o {
	case OutcomeRejected:
		return zapcore.WarnLevel
	case OutcomeFailed:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Entry is one audit record. The JSON tags describe the on-disk format.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	Question     string    `json:"question"`
	SQL          string    `json:"sql"`
	Outcome      Outcome   `json:"outcome"`
	Severity     string    `json:"severity"`
	Reason       string    `json:"reason,omitempty"`
	Adapter      string    `json:"adapter"`
	DatabaseName string    `json:"database_name"`
	DurationMS   int64     `json:"duration_ms"`
	RowCount     int64     `json:"row_count"`
	DSN          string    `json:"dsn,omitempty"`
}

// MarshalLogObject writes e as flat fields.
func (e Entry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("timestamp", e.Timestamp)
	enc.AddString("request_id", e.RequestID)
	enc.AddString("question", e.Question)
	enc.AddString("sql", e.SQL)
	enc.AddString("outcome", string(e.Outcome))
	enc.AddString("severity", e.Severity)
	if e.Reason != "" {
		enc.AddString("reason", e.Reason)
	}
	enc.AddString("adapter", e.Adapter)
	enc.AddString("database_name", e.DatabaseName)
	enc.AddInt64("duration_ms", e.DurationMS)
	enc.AddInt64("row_count", e.RowCount)
	if e.DSN != "" {
		enc.AddString("dsn", e.DSN)
	}
	return nil
}

// Logger appends entries to an audit file. The zero value is unusable; a nil
// *Logger discards everything.
type Logger struct {
	log  *zap.Logger
	file *rotatingFile
}

// New opens path for appending, creating parent directories (0o700) and the
// file (0o600). With maxSizeMB > 0 the file is moved to path.1 once it grows
// past that size.
func New(path string, maxSizeMB int) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	file, err := openRotating(path, int64(maxSizeMB)*1024*1024)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(file), zapcore.InfoLevel)
	return &Logger{log: zap.New(core), file: file}, nil
}

// Log writes e as one JSON line. A zero Timestamp becomes now, Severity is
// derived from the outcome and the DSN loses its credentials. Safe for
// concurrent use.
func (l *Logger) Log(e Entry) {
	if l == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Severity = e.Outcome.Severity()
	e.DSN = logging.SanitizeConnectionString(e.DSN)

	if ce := l.log.Check(e.Outcome.level(), ""); ce != nil {
		ce.Write(zap.Inline(e))
	}
}

// Close flushes and closes the file. Calling Close on a nil Logger is a
// no-op.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.log.Sync()
	return l.file.Close()
}

// rotatingFile is a zapcore.WriteSyncer that renames itself to path.1 after
// a write takes it past limit bytes.
type rotatingFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	f     *os.File
	size  int64
}

func openRotating(path string, limit int64) (*rotatingFile, error) {
	r := &rotatingFile{path: path, limit: limit}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("audit: stat file: %w", err)
	}
	r.f, r.size = f, info.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, os.ErrClosed
	}

	n, err := r.f.Write(p)
	r.size += int64(n)
	if err != nil {
		return n, err
	}
	r.rotateIfNeeded()
	return n, nil
}

// rotateIfNeeded runs after a complete write, so a record is never split
// between path.1 and path.
func (r *rotatingFile) rotateIfNeeded() {
	if r.limit <= 0 || r.size < r.limit {
		return
	}
	r.rotate()
}

// rotate keeps at most one backup. If reopening fails later writes report
// os.ErrClosed.
func (r *rotatingFile) rotate() {
	_ = r.f.Close()
	r.f = nil
	_ = os.Rename(r.path, r.path+".1")
	_ = r.open()
}

func (r *rotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	return r.f.Sync()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
