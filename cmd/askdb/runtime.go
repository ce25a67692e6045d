package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/analyzer"
	"github.com/sadopc/askdb/internal/audit"
	"github.com/sadopc/askdb/internal/cache"
	"github.com/sadopc/askdb/internal/config"
	"github.com/sadopc/askdb/internal/embedding"
	"github.com/sadopc/askdb/internal/engine"
	"github.com/sadopc/askdb/internal/graph"
	"github.com/sadopc/askdb/internal/highlight"
	"github.com/sadopc/askdb/internal/history"
	"github.com/sadopc/askdb/internal/joins"
	"github.com/sadopc/askdb/internal/logging"
	"github.com/sadopc/askdb/internal/synth"
	"github.com/sadopc/askdb/internal/theme"
)

// loadConfig reads the config file named by the flags, or the default one,
// and applies flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if flags.adapter != "" {
		cfg.Database.Adapter = flags.adapter
	}
	if flags.dsn != "" {
		cfg.Database.DSN = flags.dsn
	}
	if flags.database != "" {
		cfg.Database.Name = flags.database
	}
	if flags.schema != "" {
		cfg.Database.Schema = flags.schema
	}
	if flags.theme != "" {
		cfg.Theme = flags.theme
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// runtime owns everything a command needs: the connection, the schema
// graph, the engine and the state stores.
type runtime struct {
	cfg         *config.Config
	logger      *zap.Logger
	theme       *theme.Theme
	highlighter *highlight.Highlighter

	adapterName string
	conn        adapter.Connection
	graph       *graph.Graph
	engine      *engine.Engine

	cache     *cache.Cache
	cachePath string
	history   *history.History
	audit     *audit.Logger
}

// newBaseRuntime loads config and logging without touching the database.
func newBaseRuntime(flags *rootFlags) (*runtime, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:         cfg,
		logger:      logger,
		theme:       theme.Get(cfg.Theme),
		highlighter: highlight.New(cfg.Database.Adapter),
	}, nil
}

// openRuntime connects to the configured database, builds the schema graph
// and assembles the engine.
func openRuntime(ctx context.Context, flags *rootFlags) (_ *runtime, err error) {
	rt, err := newBaseRuntime(flags)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()
	cfg := rt.cfg

	name, dsn, err := cfg.ResolveDatabase()
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errors.New("no database configured: pass --dsn or set database.dsn")
	}
	if name == "" {
		name = detectAdapter(dsn)
	}
	if _, ok := adapter.Registry[name]; !ok {
		return nil, fmt.Errorf("unknown adapter %q (available: %s)", name, strings.Join(adapter.Names(), ", "))
	}
	rt.adapterName = name
	rt.highlighter = highlight.New(name)

	rt.logger.Debug("connecting",
		zap.String("adapter", name),
		zap.String("dsn", logging.SanitizeConnectionString(dsn)))
	rt.conn, err = adapter.Open(ctx, name, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %s", logging.SanitizeError(err))
	}

	catalog := adapter.NewCatalog(rt.conn, cfg.Database.Name, cfg.Database.Schema)
	rt.graph, err = graph.Build(ctx, catalog, rt.logger)
	if err != nil {
		return nil, err
	}

	analyzerOpts := []analyzer.Option{
		analyzer.WithLogger(rt.logger),
		analyzer.WithMinSimilarity(cfg.Embedding.MinSimilarity),
	}
	if cfg.Embedding.Enabled {
		client, err := embedding.NewClient(embedding.Config{
			Endpoint: cfg.Embedding.Endpoint,
			Model:    cfg.Embedding.Model,
			APIKey:   cfg.Embedding.APIKey,
		}, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
		rt.logger.Debug("semantic matching enabled", zap.String("model", client.Model()))
		analyzerOpts = append(analyzerOpts, analyzer.WithEmbedder(client))
	}

	rt.cache = cache.New(cfg.Query.CacheCapacity, cache.WithLogger(rt.logger))
	if cfg.Query.CacheFile != "" {
		if rt.cachePath, err = config.StatePath(cfg.Query.CacheFile, ""); err != nil {
			return nil, err
		}
		if err := rt.cache.LoadFile(rt.cachePath); err != nil {
			rt.logger.Warn("could not load query cache", zap.String("path", rt.cachePath), zap.Error(err))
		}
	}

	engineOpts := []engine.Option{
		engine.WithLogger(rt.logger),
		engine.WithLargeTable(cfg.Query.LargeTableRows, cfg.Query.LargeTableLimit),
		engine.WithSource(name, catalog.Database, dsn),
	}
	hist, herr := openHistory(cfg)
	switch {
	case herr != nil:
		rt.logger.Warn("could not open history", zap.Error(herr))
	case hist != nil:
		rt.history = hist
		engineOpts = append(engineOpts, engine.WithHistory(hist))
	}
	if cfg.Audit.Enabled {
		path, err := config.StatePath(cfg.Audit.Path, "audit.jsonl")
		if err != nil {
			return nil, err
		}
		al, aerr := audit.New(path, cfg.Audit.MaxSizeMB)
		if aerr != nil {
			rt.logger.Warn("could not open audit log", zap.Error(aerr))
		} else {
			rt.audit = al
			engineOpts = append(engineOpts, engine.WithAudit(al))
		}
	}

	rt.engine, err = engine.New(engine.Deps{
		Graph:    rt.graph,
		Analyzer: analyzer.New(rt.graph, analyzerOpts...),
		Resolver: joins.New(rt.graph, rt.logger),
		Synth: synth.New(rt.graph,
			synth.WithListLimit(cfg.Query.ListLimit),
			synth.WithMaxColumns(cfg.Query.MaxColumns),
			synth.WithLogger(rt.logger)),
		Cache:    rt.cache,
		Executor: catalog,
	}, engineOpts...)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// openHistory returns nil when history is disabled.
func openHistory(cfg *config.Config) (*history.History, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path, err := config.StatePath(cfg.History.Path, "history.db")
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// Close saves the cache snapshot and releases every resource.
func (rt *runtime) Close() {
	if rt.cache != nil && rt.cachePath != "" {
		if err := rt.cache.SaveFile(rt.cachePath); err != nil {
			rt.logger.Warn("could not save query cache", zap.String("path", rt.cachePath), zap.Error(err))
		}
	}
	if rt.history != nil {
		_ = rt.history.Close()
	}
	if rt.audit != nil {
		_ = rt.audit.Close()
	}
	if rt.conn != nil {
		_ = rt.conn.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
}
