package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cellarbook/enrich-cli/internal/cache"
	"github.com/cellarbook/enrich-cli/internal/enrich"
	"github.com/cellarbook/enrich-cli/internal/infer"
	"github.com/cellarbook/enrich-cli/internal/resolver"
	"github.com/cellarbook/enrich-cli/pkg/winesearch"
)

// engineEnv bundles the wired engine with the store it owns.
type engineEnv struct {
	Store  cache.Store
	Engine *enrich.Engine
}

func (e *engineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initStore opens the configured backend and runs migrations.
func initStore(ctx context.Context) (cache.Store, error) {
	var st cache.Store
	var err error

	switch cfg.Store.Driver {
	case "postgres":
		st, err = cache.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		path := cfg.Store.Path
		if path == "" {
			path = "wine-cache.db"
		}
		st, err = cache.NewSQLite(path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEngine builds the full enrichment engine from config.
func initEngine(ctx context.Context) (*engineEnv, error) {
	if cfg.Search.APIKey == "" {
		return nil, eris.New("ENRICH_SEARCH_API_KEY not set")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := resolver.DefaultAbbreviations()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load abbreviation table")
	}
	expander, err := resolver.NewExpander(rules)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "build abbreviation expander")
	}

	inferencer, err := infer.New()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load inference tables")
	}

	res := resolver.New(st, expander, cfg.Resolver, cfg.Engine.TTL)
	searcher := winesearch.NewClient(cfg.Search)
	engine := enrich.New(st, res, searcher, inferencer, cfg.Engine)

	return &engineEnv{Store: st, Engine: engine}, nil
}
