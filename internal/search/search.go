// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries a web search provider for one sub-query at a time.
package search

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/pkg/types"
)

const defaultMaxResults = 5

// Provider searches a single web search API. Each provider (Tavily, Brave)
// implements this interface per the Strategy pattern.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)
}

// Client wraps a Provider and absorbs its failures: a failed search is an
// empty result, never an error.
type Client struct {
	Provider   Provider
	MaxResults int
	Logger     *zap.Logger
}

// New builds a Client for the provider named in cfg.
func New(cfg types.SearchConfig, keys types.APIKeys, client *http.Client, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var p Provider
	switch cfg.Provider {
	case "", "tavily":
		p = &TavilyProvider{Client: client, APIKey: keys.Tavily, UserAgent: cfg.UserAgent}
	case "brave":
		p = &BraveProvider{Client: client, APIKey: keys.Brave, UserAgent: cfg.UserAgent}
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}

	return &Client{Provider: p, MaxResults: cfg.MaxResults, Logger: logger}, nil
}

// Search returns up to MaxResults hits for query, or an empty slice on any
// provider failure.
func (c *Client) Search(ctx context.Context, query string) []types.SearchResult {
	maxResults := c.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	results, err := c.Provider.Search(ctx, query, maxResults)
	if err != nil {
		c.Logger.Warn("search failed",
			zap.String("provider", c.Provider.Name()),
			zap.String("query", truncate(query, 100)),
			zap.Error(err))
		return []types.SearchResult{}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
