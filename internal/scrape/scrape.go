// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape fetches page content through loaders selected by hostname.
// A Registry maps ordered hostname patterns to Loader instances and falls
// back to a default loader for unmatched hosts.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/pkg/types"
)

// MinContentLength is the shortest body, in characters, a loader may return.
const MinContentLength = 100

// Loader fetches one URL. Load never returns an error: any failure is
// reported as ok == false.
type Loader interface {
	Name() string
	Load(ctx context.Context, rawURL string) (page types.ScrapedPage, ok bool)
}

type registration struct {
	patterns []*regexp.Regexp
	loader   Loader
}

// Registry resolves a URL to a Loader. Registration order is significant:
// the first registration with any matching pattern wins.
type Registry struct {
	registrations []registration
	fallback      Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register appends a rule binding hostname patterns to loader. Each pattern
// must match the whole hostname.
func (r *Registry) Register(patterns []string, loader Loader) error {
	reg := registration{loader: loader}
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return fmt.Errorf("compiling loader pattern %q: %w", p, err)
		}
		reg.patterns = append(reg.patterns, re)
	}
	r.registrations = append(r.registrations, reg)
	return nil
}

// SetDefault sets the loader used when no pattern matches.
func (r *Registry) SetDefault(loader Loader) { r.fallback = loader }

// Resolve returns the loader for rawURL, or nil when nothing matches and no
// default is set.
func (r *Registry) Resolve(rawURL string) Loader {
	host := hostname(rawURL)
	for _, reg := range r.registrations {
		for _, re := range reg.patterns {
			if re.MatchString(host) {
				return reg.loader
			}
		}
	}
	return r.fallback
}

// ScrapeAll loads urls one at a time, in order, through the registry.
// Unavailable pages are skipped.
func ScrapeAll(ctx context.Context, reg *Registry, urls []string, logger *zap.Logger) []types.ScrapedPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	pages := make([]types.ScrapedPage, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		loader := reg.Resolve(u)
		if loader == nil {
			logger.Warn("no loader for url, skipping", zap.String("url", u))
			continue
		}
		page, ok := loader.Load(ctx, u)
		if !ok {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// hostname returns the lowercased host of rawURL without port, or "".
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// dedupe returns the non-empty values of in, first occurrence kept.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func charLen(s string) int { return utf8.RuneCountInString(s) }

// truncateChars returns the first n characters of s.
func truncateChars(s string, n int) string {
	if n < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
