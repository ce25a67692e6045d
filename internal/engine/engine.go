// Package engine runs the translation pipeline: analysis, join planning,
// synthesis, the safety gate, row limiting, execution and formatting. It
// also records every outcome in the cache, the history store and the audit
// log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/analyzer"
	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/audit"
	"github.com/sadopc/askdb/internal/cache"
	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/history"
	"github.com/sadopc/askdb/internal/joins"
	"github.com/sadopc/askdb/internal/logging"
	"github.com/sadopc/askdb/internal/result"
	"github.com/sadopc/askdb/internal/safety"
	"github.com/sadopc/askdb/internal/synth"
)

const (
	DefaultLargeTableRows  = 10000
	DefaultLargeTableLimit = 100
)

// Executor runs a read-only statement. adapter.Catalog satisfies it.
type Executor interface {
	ExecuteReadOnly(ctx context.Context, stmt string) (*adapter.QueryResult, error)
}

// Deps are the pipeline stages. All are required.
type Deps struct {
	Graph    *graph.Graph
	Analyzer *analyzer.Analyzer
	Resolver *joins.Resolver
	Synth    *synth.Synthesizer
	Cache    *cache.Cache
	Executor Executor
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistory records every request in h.
func WithHistory(h *history.History) Option {
	return func(e *Engine) { e.history = h }
}

// WithAudit writes executed and rejected statements to l.
func WithAudit(l *audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLargeTable sets the row count above which a table counts as large and
// the LIMIT appended to unbounded statements touching one.
func WithLargeTable(rows int64, limit int) Option {
	return func(e *Engine) {
		if rows > 0 {
			e.largeRows = rows
		}
		if limit > 0 {
			e.largeLimit = limit
		}
	}
}

// WithSource names the database for history and audit records. The DSN is
// sanitized before it is written anywhere.
func WithSource(adapterName, databaseName, dsn string) Option {
	return func(e *Engine) {
		e.adapterName = adapterName
		e.databaseName = databaseName
		e.dsn = dsn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is safe for concurrent use.
type Engine struct {
	graph    *graph.Graph
	analyzer *analyzer.Analyzer
	resolver *joins.Resolver
	synth    *synth.Synthesizer
	cache    *cache.Cache
	exec     Executor

	history *history.History
	audit   *audit.Logger
	logger  *zap.Logger
	now     func() time.Time

	largeRows  int64
	largeLimit int

	adapterName  string
	databaseName string
	dsn          string
}

// New assembles an Engine.
func New(d Deps, opts ...Option) (*Engine, error) {
	switch {
	case d.Graph == nil:
		return nil, errors.New("engine: graph is required")
	case d.Analyzer == nil:
		return nil, errors.New("engine: analyzer is required")
	case d.Resolver == nil:
		return nil, errors.New("engine: join resolver is required")
	case d.Synth == nil:
		return nil, errors.New("engine: synthesizer is required")
	case d.Cache == nil:
		return nil, errors.New("engine: cache is required")
	case d.Executor == nil:
		return nil, errors.New("engine: executor is required")
	}
	e := &Engine{
		graph:      d.Graph,
		analyzer:   d.Analyzer,
		resolver:   d.Resolver,
		synth:      d.Synth,
		cache:      d.Cache,
		exec:       d.Executor,
		logger:     zap.NewNop(),
		now:        time.Now,
		largeRows:  DefaultLargeTableRows,
		largeLimit: DefaultLargeTableLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("engine")
	return e, nil
}

// Answer is the outcome of one request. On failure it holds whatever was
// produced before the failing stage.
type Answer struct {
	RequestID  string
	Question   string
	SQL        string
	Tables     []string
	Confidence float64
	Analysis   *analyzer.Analysis
	Plan       joins.Plan
	Warnings   []string
	// Cached is set when the statement came from the cache.
	Cached bool
	// Limited is set when the large-table LIMIT was appended.
	Limited bool
	// Modification is set when the executor reported a statement that
	// returned no row set; AffectedRows then holds its count.
	Modification bool
	AffectedRows int64
	Result       *result.Result
	Duration     time.Duration
}

// Ask translates text into a statement, checks it, executes it and formats
// the rows. Failures are returned as the apperrors kinds.
func (e *Engine) Ask(ctx context.Context, text string) (*Answer, error) {
	start := e.now()
	ans := &Answer{RequestID: uuid.NewString(), Question: text}
	log := e.logger.With(zap.String("request_id", ans.RequestID))

	a := e.analyzer.Analyze(ctx, text)
	ans.Analysis = a
	ans.Confidence = a.Confidence
	ans.Tables = a.Tables

	if entry, ok := e.cache.Get(text); ok {
		ans.SQL = entry.SQL
		ans.Cached = true
		if len(entry.Tables) > 0 {
			ans.Tables = entry.Tables
			ans.Confidence = entry.Confidence
		}
		log.Debug("cache hit", zap.Uint64("uses", entry.Uses))
	} else {
		plan := e.resolver.Resolve(a.Tables)
		gq, err := e.synth.Synthesize(a, a.Tables, plan)
		ans.SQL = gq.SQL
		ans.Plan = plan
		ans.Warnings = gq.Warnings
		if err != nil {
			e.record(ctx, ans, start, history.StatusFailed, err)
			return ans, err
		}
		ans.Tables = gq.Tables
		ans.Confidence = gq.Confidence
	}
	synthesized := ans.SQL
	stmt := synthesized

	if err := safety.Check(stmt); err != nil {
		log.Warn("statement rejected",
			zap.String("sql", logging.TruncateSQL(stmt)),
			zap.Error(err))
		e.auditLog(ans, start, audit.OutcomeRejected, err)
		e.record(ctx, ans, start, history.StatusRejected, err)
		return ans, err
	}

	if !synth.HasLimit(stmt) && !synth.HasCount(stmt) && e.anyLarge(ctx, ans.Tables) {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, e.largeLimit)
		ans.SQL = stmt
		ans.Limited = true
	}

	qr, err := e.exec.ExecuteReadOnly(ctx, stmt)
	if err != nil {
		err = &apperrors.ExecutionError{SQL: stmt, Err: err}
		log.Warn("execution failed",
			zap.String("sql", logging.TruncateSQL(stmt)),
			zap.String("error", logging.SanitizeError(err)))
		e.auditLog(ans, start, audit.OutcomeFailed, err)
		e.record(ctx, ans, start, history.StatusFailed, err)
		return ans, err
	}

	ans.Result = result.Format(qr)
	if qr != nil && !qr.IsSelect && len(qr.Columns) == 0 {
		ans.Modification = true
		ans.AffectedRows = qr.RowCount
	}
	ans.Duration = e.now().Sub(start)

	// The statement is cached without the large-table LIMIT so the row
	// counts run again on the next hit.
	e.cache.Put(text, cache.Translation{SQL: synthesized, Tables: ans.Tables, Confidence: ans.Confidence})

	status := history.StatusOK
	if ans.Cached {
		status = history.StatusCached
	}
	e.auditLog(ans, start, audit.OutcomeExecuted, nil)
	e.record(ctx, ans, start, status, nil)

	log.Debug("request answered",
		zap.Bool("cached", ans.Cached),
		zap.Bool("limited", ans.Limited),
		zap.Int("rows", ans.Result.RowCount),
		zap.Duration("duration", ans.Duration))
	return ans, nil
}
