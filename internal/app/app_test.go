// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/cache"
	"github.com/pdiddy/research-service/internal/embed"
	"github.com/pdiddy/research-service/internal/llm"
	"github.com/pdiddy/research-service/internal/research"
	"github.com/pdiddy/research-service/pkg/types"
)

func baseConfig() types.ServiceConfig {
	return types.ServiceConfig{
		LLM: types.LLMConfig{
			Provider:       "openai",
			FastLLM:        "gpt-4o-mini",
			SmartLLM:       "gpt-4o",
			EmbeddingModel: "openai:text-embedding-3-small",
			Keys:           types.APIKeys{OpenAI: "sk-test", Tavily: "tvly-test"},
		},
		Search:   types.SearchConfig{Provider: "tavily"},
		Cache:    types.CacheConfig{Backend: "memory"},
		Research: types.ResearchConfig{MaxDepthTier: "standard", FinalCompression: types.FinalCap},
	}
}

func TestNewEngine(t *testing.T) {
	cfg := baseConfig()
	tiers, err := NewTiers(cfg.Research)
	require.NoError(t, err)

	e, err := NewEngine(cfg, tiers, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", e.Planner.Name())
	assert.Equal(t, "openai:gpt-4o", e.Writer.Name())
	assert.Equal(t, "openai:text-embedding-3-small", e.EmbeddingModel)
	assert.Equal(t, types.FinalCap, e.FinalCompression)
	assert.Equal(t, "gpt-4o", e.Metadata.SmartLLM)
	assert.Equal(t, "readability", e.Registry.Resolve("https://example.com/a").Name())
	assert.Equal(t, "reddit", e.Registry.Resolve("https://old.reddit.com/r/golang").Name())
}

func TestNewEngine_UnsupportedProviders(t *testing.T) {
	cfg := baseConfig()
	cfg.LLM.Provider = "mistral"
	_, err := NewEngine(cfg, nil, nil)
	assert.ErrorIs(t, err, llm.ErrUnsupportedProvider)

	cfg = baseConfig()
	cfg.LLM.EmbeddingModel = "cohere:embed-v3"
	_, err = NewEngine(cfg, nil, nil)
	assert.ErrorIs(t, err, embed.ErrUnsupportedProvider)

	cfg = baseConfig()
	cfg.Search.Provider = "bing"
	_, err = NewEngine(cfg, nil, nil)
	assert.Error(t, err)
}

func TestNewTiers(t *testing.T) {
	ts, err := NewTiers(types.ResearchConfig{MaxDepthTier: "standard"})
	require.NoError(t, err)
	p, err := ts.ResolveParams("deep", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, research.Params{ReportType: types.ReportResearch, Depth: 2, Breadth: 4}, p)

	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiers:\n  - name: huge\n    report_type: detailed_report\n    depth: 5\n    breadth: 10\n    min_words: 5000\n"), 0o644))
	ts, err = NewTiers(types.ResearchConfig{TiersFile: path, MaxDepthTier: "huge"})
	require.NoError(t, err)
	_, ok := ts.Lookup("huge")
	assert.True(t, ok)

	_, err = NewTiers(types.ResearchConfig{MaxDepthTier: "missing"})
	assert.ErrorIs(t, err, research.ErrUnknownTier)
}

func TestNewService(t *testing.T) {
	cfg := baseConfig()
	cfg.Callback.AllowedHosts = []string{"hooks.example.com"}

	svc, err := NewService(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Metrics)
	assert.Equal(t, []string{"hooks.example.com"}, svc.AllowedHosts)

	_, err = svc.Get(context.Background(), "nothing")
	assert.Error(t, err)
}

func TestNewService_SQLiteStartsPurge(t *testing.T) {
	cfg := baseConfig()
	cfg.Cache = types.CacheConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "results.db")}

	svc, err := NewService(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLite{}, svc.Cache)
	require.NotNil(t, svc.stopPurge)
	require.NoError(t, svc.Close())

	select {
	case <-svc.purged:
	default:
		t.Fatal("purge loop still running after Close")
	}
}

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPurger) Purge(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestPurgeLoop(t *testing.T) {
	for _, perr := range []error{nil, errors.New("database is locked")} {
		p := &countingPurger{err: perr}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			purgeLoop(ctx, p, time.Millisecond, zap.NewNop())
		}()

		require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
		cancel()
		<-done
	}
}
