package cmd

import (
	"fmt"
	"os"

	"github.com/reverb-labs/echosearch/internal/config"
	"github.com/reverb-labs/echosearch/internal/maintain"
	"github.com/reverb-labs/echosearch/internal/nlp"
	"github.com/reverb-labs/echosearch/internal/search"
	"github.com/reverb-labs/echosearch/internal/store"
)

// app bundles the wired collaborators behind one close call. Commands build
// it from config, use what they need, and defer Close.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	index    store.LexicalIndex
	pipeline *search.Pipeline
	maintain *maintain.Maintainer
}

// newApp opens the store and lexical index and assembles the full ranking
// pipeline per the loaded configuration.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	index, err := store.NewLexicalIndex(cfg.Store.LexicalBackend, s.DB(), cfg.Store.DataDir)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	invoker := nlp.NewSubprocessInvoker(cfg.Model.Binary, cfg.Model.Args...)
	cache := search.NewFacetCache(search.CacheCapacity, search.CacheTTL)
	decomposer := search.NewDecomposer(invoker, cache)
	frequency := search.NewFrequencyScorer(s)
	retry := search.NewRetryTracker(s)

	opts := []search.PipelineOption{
		search.WithEntryLookup(s),
		search.WithReranker(search.NewReranker(invoker), search.RerankConfig{
			Enabled:       cfg.Rerank.Enabled,
			Threshold:     cfg.Rerank.Threshold,
			MaxCandidates: cfg.Rerank.MaxCandidates,
			Timeout:       cfg.Rerank.Timeout(),
		}),
	}

	pipeline, err := search.NewPipeline(index, decomposer, frequency, retry, opts...)
	if err != nil {
		_ = index.Close()
		_ = s.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    s,
		index:    index,
		pipeline: pipeline,
		maintain: maintain.New(s, index, cfg.Store.DataDir),
	}, nil
}

func (a *app) Close() {
	_ = a.index.Close()
	_ = a.store.Close()
}
