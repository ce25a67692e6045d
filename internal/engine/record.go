package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/audit"
	"github.com/sadopc/askdb/internal/history"
	"github.com/sadopc/askdb/internal/logging"
)

// record appends ans to the history store. Storage errors are logged and
// never fail the request.
func (e *Engine) record(ctx context.Context, ans *Answer, start time.Time, status history.Status, err error) {
	if e.history == nil {
		return
	}
	entry := history.Entry{
		RequestID:    ans.RequestID,
		Question:     ans.Question,
		SQL:          ans.SQL,
		Tables:       ans.Tables,
		Confidence:   ans.Confidence,
		Adapter:      e.adapterName,
		DatabaseName: e.databaseName,
		ExecutedAt:   start,
		DurationMS:   e.now().Sub(start).Milliseconds(),
		Status:       status,
	}
	if ans.Analysis != nil {
		entry.Intent = string(ans.Analysis.Intent)
	}
	if ans.Result != nil {
		entry.RowCount = int64(ans.Result.RowCount)
	}
	if err != nil {
		entry.Error = logging.SanitizeError(err)
	}
	if herr := e.history.Add(context.WithoutCancel(ctx), entry); herr != nil {
		e.logger.Warn("history write failed", zap.Error(herr))
	}
}

// auditLog writes the statement outcome to the audit log.
func (e *Engine) auditLog(ans *Answer, start time.Time, outcome audit.Outcome, err error) {
	if e.audit == nil {
		return
	}
	entry := audit.Entry{
		Timestamp:    start.UTC(),
		RequestID:    ans.RequestID,
		Question:     ans.Question,
		SQL:          ans.SQL,
		Outcome:      outcome,
		Adapter:      e.adapterName,
		DatabaseName: e.databaseName,
		DurationMS:   e.now().Sub(start).Milliseconds(),
		DSN:          e.dsn,
	}
	if ans.Result != nil {
		entry.RowCount = int64(ans.Result.RowCount)
	}
	var unsafe *apperrors.UnsafeQueryError
	switch {
	case errors.As(err, &unsafe):
		entry.Reason = unsafe.Reason
	case err != nil:
		entry.Reason = logging.SanitizeError(err)
	}
	e.audit.Log(entry)
}
