// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/llm"
	"github.com/pdiddy/research-service/internal/scrape"
	"github.com/pdiddy/research-service/pkg/types"
)

const (
	// levelTopK caps the passages each level keeps.
	levelTopK = 10

	passageSeparator = "\n\n---\n\n"
	snippetLength    = 200
)

// levelOutput is what one research level contributes to a run.
type levelOutput struct {
	context string
	urls    []string
	sources []types.ResearchSource
	images  []string
}

// runLevel plans breadth sub-queries, searches them concurrently, scrapes
// every discovered URL once, and compresses the pages into passages. It
// never fails: planner, search, and loader errors leave the level empty.
func (e *Engine) runLevel(ctx context.Context, query string, breadth int, prior string, sink events.Sink, led *ledger) levelOutput {
	logger := e.logger()

	prompt, err := planPrompt(query, breadth, prior, e.clock())
	if err != nil {
		logger.Error("rendering plan prompt", zap.Error(err))
		return levelOutput{}
	}

	subQueries, usage, err := llm.GenerateList(ctx, e.Planner, prompt)
	led.planner.addLLM(usage)
	if err != nil {
		logger.Warn("planning sub-queries failed",
			zap.String("query", truncate(query, 100)), zap.Error(err))
		return levelOutput{}
	}
	if len(subQueries) > breadth {
		subQueries = subQueries[:breadth]
	}
	logger.Debug("sub-queries planned",
		zap.String("query", truncate(query, 100)),
		zap.Strings("sub_queries", subQueries),
		zap.Bool("has_prior_context", prior != ""))

	sink.Emit(events.Status, events.StatusData{
		Step:    "researching",
		Message: fmt.Sprintf("Searching %d queries...", len(subQueries)),
	})
	hits := e.searchAll(ctx, subQueries, sink)

	var out levelOutput
	for _, h := range hits {
		out.urls = append(out.urls, h.URL)
		out.sources = append(out.sources, types.ResearchSource{URL: h.URL, Title: h.Title})
	}
	logger.Info("search completed",
		zap.String("query", truncate(query, 100)),
		zap.Int("queries_searched", len(subQueries)),
		zap.Int("total_results", len(hits)))

	toScrape := uniqueStrings(out.urls)
	sink.Emit(events.Status, events.StatusData{
		Step:    "researching",
		Message: fmt.Sprintf("Scraping %d pages...", len(toScrape)),
	})
	pages := scrape.ScrapeAll(ctx, e.Registry, toScrape, logger)
	logger.Info("scrape completed",
		zap.Int("urls_attempted", len(toScrape)),
		zap.Int("pages_returned", len(pages)))

	passages := make([]string, 0, len(pages))
	for _, p := range pages {
		passages = append(passages, formatPassage(p))
		out.images = append(out.images, p.Images...)
	}

	if len(passages) > 0 {
		sink.Emit(events.Status, events.StatusData{Step: "researching", Message: "Compressing context..."})
		before := len(passages)
		selected, embedUsage := e.Compressor.Compress(ctx, query, passages, levelTopK)
		led.embedding.addEmbed(embedUsage)
		passages = selected
		logger.Info("context compressed",
			zap.Int("passages_in", before),
			zap.Int("passages_out", len(passages)),
			zap.Int("embed_tokens", embedUsage.InputTokens))
	}

	out.context = strings.Join(passages, passageSeparator)
	return out
}

// searchAll runs one search per sub-query concurrently and returns the hits
// in sub-query order. Findings are emitted as each search completes.
func (e *Engine) searchAll(ctx context.Context, subQueries []string, sink events.Sink) []types.SearchResult {
	results := make([][]types.SearchResult, len(subQueries))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range subQueries {
		g.Go(func() error {
			hits := e.Searcher.Search(gctx, q)
			results[i] = hits

			mu.Lock()
			defer mu.Unlock()
			for _, h := range hits {
				sink.Emit(events.Finding, events.FindingData{Source: h.URL, Summary: truncate(h.Snippet, snippetLength)})
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []types.SearchResult
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func formatPassage(p types.ScrapedPage) string {
	return fmt.Sprintf("Source: %s\nTitle: %s\n\n%s", p.URL, p.Title, p.Content)
}

// uniqueStrings drops repeats, keeping first-seen order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
