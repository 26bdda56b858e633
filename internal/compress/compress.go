// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compress ranks text passages by embedding similarity to a query
// and keeps the most relevant ones.
package compress

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/embed"
)

// Compressor selects passages by cosine similarity. A Compressor fails open:
// any embedding error yields the input passages, capped at top_k, with zero
// usage.
type Compressor struct {
	Embedder embed.Embedder
	Logger   *zap.Logger
}

// New returns a Compressor backed by e.
func New(e embed.Embedder, logger *zap.Logger) *Compressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compressor{Embedder: e, Logger: logger}
}

// Compress returns at most topK passages ordered by descending similarity to
// query. When len(passages) <= topK the input is returned unchanged without
// an embedding call.
func (c *Compressor) Compress(ctx context.Context, query string, passages []string, topK int) ([]string, embed.Usage) {
	if len(passages) == 0 {
		return nil, embed.Usage{}
	}
	if len(passages) <= topK {
		return passages, embed.Usage{}
	}

	selected, usage, err := c.rank(ctx, query, passages, topK)
	if err != nil {
		c.Logger.Warn("context compression failed, passing passages through",
			zap.Int("passages", len(passages)),
			zap.Int("top_k", topK),
			zap.Error(err))
		return passages[:max(topK, 0)], embed.Usage{}
	}
	return selected, usage
}

// Rank returns every passage ordered by descending similarity to query. It
// always embeds, even for a single passage. On failure the input order is
// kept with zero usage.
func (c *Compressor) Rank(ctx context.Context, query string, passages []string) ([]string, embed.Usage) {
	if len(passages) == 0 {
		return nil, embed.Usage{}
	}
	ranked, usage, err := c.rank(ctx, query, passages, len(passages))
	if err != nil {
		c.Logger.Warn("ranking passages failed, keeping input order",
			zap.Int("passages", len(passages)),
			zap.Error(err))
		return passages, embed.Usage{}
	}
	return ranked, usage
}

func (c *Compressor) rank(ctx context.Context, query string, passages []string, topK int) ([]string, embed.Usage, error) {
	if c.Embedder == nil {
		return nil, embed.Usage{}, fmt.Errorf("no embedder configured")
	}

	texts := make([]string, 0, len(passages)+1)
	texts = append(texts, query)
	texts = append(texts, passages...)

	vecs, usage, err := c.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, embed.Usage{}, err
	}
	if len(vecs) != len(texts) {
		return nil, embed.Usage{}, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	scores := make([]float64, len(passages))
	for i := range passages {
		s, err := Cosine(vecs[0], vecs[i+1])
		if err != nil {
			return nil, embed.Usage{}, fmt.Errorf("passage %d: %w", i, err)
		}
		scores[i] = s
	}

	order := make([]int, len(passages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	out := make([]string, 0, topK)
	for _, idx := range order[:topK] {
		out = append(out, passages[idx])
	}
	return out, usage, nil
}

// Cosine returns the cosine similarity of a and b. A zero vector has
// similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
