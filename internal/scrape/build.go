// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/pkg/types"
)

// RedditHostPatterns route Reddit hosts to the Reddit loader.
var RedditHostPatterns = []string{`.*reddit\.com`, `.*reddit\.de`}

// BuildRegistry wires the Reddit loader for Reddit hosts and a default
// loader for everything else. The default is Firecrawl when a Firecrawl key
// is configured, Readability otherwise, unless cfg.DefaultLoader names one.
func BuildRegistry(cfg types.ScrapeConfig, keys types.APIKeys, client *http.Client, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	reg := NewRegistry()

	redditCfg := withRedditDefaults(cfg.Reddit)
	redditClient := &http.Client{Timeout: 15 * time.Second, Transport: client.Transport}
	reddit := &RedditLoader{
		Client:    redditClient,
		Config:    redditCfg,
		UserAgent: cfg.UserAgent,
		Logger:    logger.Named("reddit"),
	}
	if err := reg.Register(RedditHostPatterns, reddit); err != nil {
		return nil, err
	}

	name := cfg.DefaultLoader
	if name == "" {
		name = "readability"
		if keys.Firecrawl != "" {
			name = "firecrawl"
		}
	}
	switch name {
	case "firecrawl":
		reg.SetDefault(&FirecrawlLoader{
			Client: client,
			APIKey: keys.Firecrawl,
			APIURL: cfg.FirecrawlAPIURL,
			Logger: logger.Named("firecrawl"),
		})
	case "readability":
		reg.SetDefault(&ReadabilityLoader{
			Client:    client,
			UserAgent: cfg.UserAgent,
			Logger:    logger.Named("readability"),
		})
	default:
		return nil, fmt.Errorf("unknown default loader %q", name)
	}
	return reg, nil
}

// withRedditDefaults fills unset knobs. A zero MinCommentScore is a valid
// setting and is left alone.
func withRedditDefaults(c types.RedditConfig) types.RedditConfig {
	d := DefaultRedditConfig()
	if c.MaxComments <= 0 {
		c.MaxComments = d.MaxComments
	}
	if c.MaxCommentDepth <= 0 {
		c.MaxCommentDepth = d.MaxCommentDepth
	}
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = d.MaxContentLength
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	return c
}
