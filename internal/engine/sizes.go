package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/askdb/internal/logging"
	"github.com/sadopc/askdb/internal/result"
)

const countWorkers = 4

// anyLarge reports whether any of tables holds more than the large-table
// threshold. Counts run in parallel; a failed count means not large.
func (e *Engine) anyLarge(ctx context.Context, tables []string) bool {
	var large atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countWorkers)
	for _, t := range tables {
		g.Go(func() error {
			n, ok := e.rowCount(gctx, t)
			if ok && n > e.largeRows {
				e.logger.Debug("large table", zap.String("table", t), zap.Int64("rows", n))
				large.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	return large.Load()
}

// rowCount runs a one-off COUNT(*) against table. ok is false when the
// count failed or returned something other than a number.
func (e *Engine) rowCount(ctx context.Context, table string) (n int64, ok bool) {
	qr, err := e.exec.ExecuteReadOnly(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		e.logger.Warn("row count failed",
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)))
		return 0, false
	}
	if qr == nil || len(qr.Rows) == 0 || len(qr.Rows[0]) == 0 {
		return 0, false
	}
	v := result.FromCell(qr.Rows[0][0], "INTEGER")
	if v.Kind != result.KindNumber {
		return 0, false
	}
	return int64(v.Num), true
}
