// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs the recursive plan, search, scrape, compress, and
// synthesize pipeline that turns a query into a cited report.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/embed"
	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/llm"
	"github.com/pdiddy/research-service/internal/scrape"
	"github.com/pdiddy/research-service/pkg/types"
)

// highVolumeWords is the combined-context size above which a final
// compression pass runs before synthesis.
const highVolumeWords = 25000

// Searcher returns hits for one sub-query. Failures yield no hits.
type Searcher interface {
	Search(ctx context.Context, query string) []types.SearchResult
}

// Compressor keeps the topK passages most relevant to query, or ranks all of
// them without dropping any.
type Compressor interface {
	Compress(ctx context.Context, query string, passages []string, topK int) ([]string, embed.Usage)
	Rank(ctx context.Context, query string, passages []string) ([]string, embed.Usage)
}

// Engine drives research runs. An Engine holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	Planner    llm.Model
	Writer     llm.Model
	Searcher   Searcher
	Registry   *scrape.Registry
	Compressor Compressor
	Tiers      *TierSet

	// EmbeddingModel labels the embedding usage bucket.
	EmbeddingModel string
	// FinalCompression selects the policy for the high-volume pass.
	FinalCompression types.FinalCompression
	// Metadata is copied into every result.
	Metadata types.ResearchMetadata

	Logger *zap.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// NewTaskID returns a 12-character hex identifier.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ResolveBreadth returns the sub-query count for the level at 0-based index
// level: base halved level times, never below 2.
func ResolveBreadth(base, level int) int {
	if level < 0 {
		level = 0
	}
	b := 0
	if level < 63 {
		b = base >> level
	}
	return max(2, b)
}

// Run executes the pipeline and returns the completed result. Only a failure
// of the writer call is returned as an error; every other failure degrades
// to less context.
func (e *Engine) Run(ctx context.Context, query string, p Params, sink events.Sink) (types.ResearchResult, error) {
	if sink == nil {
		sink = events.Discard
	}
	logger := e.logger()
	taskID := e.newID()
	led := newLedger(e.Planner.Name(), e.Writer.Name(), e.EmbeddingModel)

	logger.Info("research pipeline started",
		zap.String("task_id", taskID),
		zap.String("query", truncate(query, 100)),
		zap.String("report_type", string(p.ReportType)),
		zap.Int("depth", p.Depth),
		zap.Int("breadth", p.Breadth),
		zap.String("model_fast", e.Planner.Name()),
		zap.String("model_smart", e.Writer.Name()))
	sink.Emit(events.Started, events.StartedData{TaskID: taskID})

	var (
		contexts []string
		urls     = map[string]bool{}
		sources  []types.ResearchSource
		images   []string
	)
	accumulate := func(level, breadth int, out levelOutput) {
		if out.context != "" {
			contexts = append(contexts, out.context)
		}
		for _, u := range out.urls {
			urls[u] = true
		}
		sources = append(sources, out.sources...)
		images = append(images, out.images...)
		logger.Info("research level completed",
			zap.String("task_id", taskID),
			zap.Int("level", level),
			zap.Int("total_levels", p.Depth),
			zap.Int("breadth", breadth),
			zap.Int("urls_found", len(out.urls)),
			zap.Int("sources_count", len(out.sources)))
	}

	sink.Emit(events.Status, events.StatusData{
		Step:    "planning",
		Message: "Generating research questions...",
		Level:   1,
		Breadth: p.Breadth,
	})
	accumulate(1, p.Breadth, e.runLevel(ctx, query, p.Breadth, "", sink, led))

	for level := 2; level <= p.Depth; level++ {
		breadth := ResolveBreadth(p.Breadth, level-1)
		sink.Emit(events.Status, events.StatusData{
			Step:    "researching",
			Message: fmt.Sprintf("Depth level %d/%d: generating follow-up queries...", level, p.Depth),
			Level:   level,
			Breadth: breadth,
		})
		prior := strings.Join(contexts, "\n\n")
		accumulate(level, breadth, e.runLevel(ctx, query, breadth, prior, sink, led))
	}

	sink.Emit(events.Status, events.StatusData{Step: "writing", Message: "Generating final report..."})
	combined := e.finalContext(ctx, taskID, query, contexts, led)

	minWords := e.tiers().MinWords(p)
	prompt, err := reportPrompt(query, combined, p.ReportType, minWords, e.clock())
	if err != nil {
		return types.ResearchResult{}, err
	}
	logger.Info("writing report",
		zap.String("task_id", taskID),
		zap.Int("context_words", len(strings.Fields(combined))),
		zap.Int("total_urls", len(urls)),
		zap.Int("total_sources", len(sources)),
		zap.Int("min_words", minWords))

	resp, err := e.Writer.Generate(ctx, prompt)
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("writing report: %w", err)
	}
	led.writer.addLLM(resp.Usage)

	usage, requests := led.totals()
	meta := e.Metadata
	meta.Requests = requests
	result := types.ResearchResult{
		TaskID:       taskID,
		Status:       types.StatusCompleted,
		Report:       resp.Text,
		Sources:      DedupeSources(sources),
		SourceURLs:   sortedKeys(urls),
		Images:       images,
		Usage:        usage,
		UsageByModel: led.byModel(),
		Metadata:     meta,
		CreatedAt:    e.clock().UTC(),
	}
	if result.Images == nil {
		result.Images = []string{}
	}

	logger.Info("research pipeline completed",
		zap.String("task_id", taskID),
		zap.Int("sources", len(result.Sources)),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Int("total_requests", requests),
		zap.Int("report_words", len(strings.Fields(resp.Text))))

	sink.Emit(events.Result, result)
	sink.Emit(events.Done, struct{}{})
	return result, nil
}

// finalContext joins level contexts and, above highVolumeWords, runs one
// more compression pass under the configured policy.
func (e *Engine) finalContext(ctx context.Context, taskID, query string, contexts []string, led *ledger) string {
	combined := strings.Join(contexts, passageSeparator)
	words := len(strings.Fields(combined))
	if words <= highVolumeWords {
		return combined
	}

	passages := strings.Split(combined, passageSeparator)
	policy := e.FinalCompression
	if policy == "" {
		policy = types.FinalReorder
	}
	e.logger().Info("compressing combined context",
		zap.String("task_id", taskID),
		zap.Int("word_count", words),
		zap.Int("passages", len(passages)),
		zap.String("policy", string(policy)))

	var (
		selected []string
		usage    embed.Usage
	)
	if policy == types.FinalCap {
		selected, usage = e.Compressor.Compress(ctx, query, passages, levelTopK)
	} else {
		selected, usage = e.Compressor.Rank(ctx, query, passages)
	}
	led.embedding.addEmbed(usage)
	return strings.Join(selected, passageSeparator)
}

// DedupeSources keeps the first source seen for each URL, in order.
func DedupeSources(in []types.ResearchSource) []types.ResearchSource {
	seen := make(map[string]bool, len(in))
	out := make([]types.ResearchSource, 0, len(in))
	for _, s := range in {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return NewTaskID()
}

func (e *Engine) tiers() *TierSet {
	if e.Tiers != nil {
		return e.Tiers
	}
	ts, _ := NewTierSet(DefaultTiers(), "")
	return ts
}
