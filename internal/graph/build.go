package graph

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/schema"
)

// MetadataSource is the introspection collaborator a graph is built from.
// adapter.Catalog satisfies it.
type MetadataSource interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]schema.Column, error)
	ListForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, error)
}

// introspectionWorkers bounds concurrent per-table metadata queries.
const introspectionWorkers = 8

// Build introspects src and assembles the graph. Any introspection failure
// is reported as apperrors.ErrSchemaUnavailable; an empty catalog yields an
// empty graph.
func Build(ctx context.Context, src MetadataSource, logger *zap.Logger) (*Graph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("graph")

	names, err := src.ListTables(ctx)
	if err != nil {
		return nil, apperrors.SchemaUnavailable(err)
	}

	tables := make([]schema.Table, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(introspectionWorkers)
	for i, name := range names {
		g.Go(func() error {
			cols, err := src.ListColumns(gctx, name)
			if err != nil {
				return err
			}
			fks, err := src.ListForeignKeys(gctx, name)
			if err != nil {
				return err
			}
			tables[i] = schema.Table{Name: name, Columns: cols, FKs: fks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.SchemaUnavailable(err)
	}

	graph := New(tables, logger)

	var explicit, inferred int
	for _, e := range graph.Edges() {
		if e.Kind == KindExplicit {
			explicit++
		} else {
			inferred++
		}
	}
	logger.Info("schema graph built",
		zap.Int("tables", graph.Len()),
		zap.Int("explicit_edges", explicit),
		zap.Int("inferred_edges", inferred))
	return graph, nil
}
