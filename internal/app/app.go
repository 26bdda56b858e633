// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package app assembles the research engine and service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/cache"
	"github.com/pdiddy/research-service/internal/callback"
	"github.com/pdiddy/research-service/internal/compress"
	"github.com/pdiddy/research-service/internal/embed"
	"github.com/pdiddy/research-service/internal/llm"
	"github.com/pdiddy/research-service/internal/metrics"
	"github.com/pdiddy/research-service/internal/research"
	"github.com/pdiddy/research-service/internal/scrape"
	"github.com/pdiddy/research-service/internal/search"
	"github.com/pdiddy/research-service/internal/service"
	"github.com/pdiddy/research-service/pkg/types"
)

// llmTimeout bounds a single model or embedding call.
const llmTimeout = 5 * time.Minute

// purgeInterval is how often expired rows are removed from a SQLite cache.
const purgeInterval = 10 * time.Minute

// NewTiers loads the tier presets and applies the configured cap.
func NewTiers(cfg types.ResearchConfig) (*research.TierSet, error) {
	tiers, err := research.LoadTiers(cfg.TiersFile)
	if err != nil {
		return nil, err
	}
	return research.NewTierSet(tiers, cfg.MaxDepthTier)
}

// NewEngine resolves every provider named in cfg and returns a ready engine.
// Unsupported provider identifiers fail here, before any request is served.
func NewEngine(cfg types.ServiceConfig, tiers *research.TierSet, logger *zap.Logger) (*research.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	llmClient := &http.Client{Timeout: llmTimeout}
	keys := cfg.LLM.Keys

	planner, err := llm.Open(cfg.LLM.FastModelID(), keys, llmClient)
	if err != nil {
		return nil, fmt.Errorf("planner model: %w", err)
	}
	writer, err := llm.Open(cfg.LLM.SmartModelID(), keys, llmClient)
	if err != nil {
		return nil, fmt.Errorf("writer model: %w", err)
	}
	embedder, err := embed.New(cfg.LLM.EmbeddingModel, keys, llmClient)
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	searcher, err := search.New(cfg.Search, keys, nil, logger.Named("search"))
	if err != nil {
		return nil, err
	}
	registry, err := scrape.BuildRegistry(cfg.Scrape, keys, nil, logger.Named("scrape"))
	if err != nil {
		return nil, err
	}

	return &research.Engine{
		Planner:          planner,
		Writer:           writer,
		Searcher:         searcher,
		Registry:         registry,
		Compressor:       compress.New(embedder, logger.Named("compress")),
		Tiers:            tiers,
		EmbeddingModel:   embedder.Name(),
		FinalCompression: cfg.Research.FinalCompression,
		Metadata: types.ResearchMetadata{
			LLMProvider: cfg.LLM.Provider,
			FastLLM:     cfg.LLM.FastLLM,
			SmartLLM:    cfg.LLM.SmartLLM,
		},
		Logger: logger.Named("research"),
	}, nil
}

// Service bundles the running service with the resources it owns.
type Service struct {
	*service.Service
	Cache   cache.Store
	Metrics *metrics.Metrics

	stopPurge func()
	purged    chan struct{}
}

// Close waits for in-flight runs, stops the purge loop, and releases the
// cache.
func (s *Service) Close() error {
	s.Wait()
	if s.stopPurge != nil {
		s.stopPurge()
		<-s.purged
	}
	return s.Cache.Close()
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeLoop calls p.Purge every interval until ctx is done.
func purgeLoop(ctx context.Context, p purger, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Warn("purging expired results failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired results", zap.Int64("rows", n))
			}
		}
	}
}

// NewService builds the engine, cache, callback dispatcher, and metrics.
func NewService(ctx context.Context, cfg types.ServiceConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tiers, err := NewTiers(cfg.Research)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg, tiers, logger)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if r, ok := store.(*cache.Redis); ok {
		if err := r.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup; results will not be cached until it recovers", zap.Error(err))
		}
	}

	m := metrics.New()
	dispatcher := callback.NewDispatcher(cfg.Callback, logger.Named("callback"))

	svc := &service.Service{
		Engine:       engine,
		Tiers:        tiers,
		Cache:        store,
		Callbacks:    dispatcher,
		AllowedHosts: cfg.Callback.AllowedHosts,
		TTL:          cfg.Cache.TTL,
		Metrics:      m,
		Logger:       logger.Named("service"),
	}
	out := &Service{Service: svc, Cache: store, Metrics: m}
	if p, ok := store.(purger); ok {
		purgeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		out.stopPurge = cancel
		out.purged = make(chan struct{})
		go func() {
			defer close(out.purged)
			purgeLoop(purgeCtx, p, purgeInterval, logger.Named("cache"))
		}()
	}
	return out, nil
}
