// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"github.com/pdiddy/research-service/internal/embed"
	"github.com/pdiddy/research-service/internal/llm"
	"github.com/pdiddy/research-service/pkg/types"
)

// Roles a model plays in a run.
const (
	RolePlanner   = "planner"
	RoleWriter    = "writer"
	RoleEmbedding = "embedding"
)

// bucket accumulates usage for one model in one role.
type bucket struct {
	model    string
	role     string
	input    int
	output   int
	requests int
}

func (b *bucket) addLLM(u llm.Usage) {
	b.input += u.InputTokens
	b.output += u.BillableOutput()
	b.requests += u.Requests
}

func (b *bucket) addEmbed(u embed.Usage) {
	b.input += u.InputTokens
	b.requests += u.Requests
}

func (b *bucket) modelUsage() types.ModelUsage {
	return types.ModelUsage{
		Model:            b.model,
		Role:             b.role,
		PromptTokens:     b.input,
		CompletionTokens: b.output,
		TotalTokens:      b.input + b.output,
		Requests:         b.requests,
	}
}

// ledger holds the buckets owned by a single run.
type ledger struct {
	planner   bucket
	writer    bucket
	embedding bucket
}

func newLedger(planner, writer, embedding string) *ledger {
	return &ledger{
		planner:   bucket{model: planner, role: RolePlanner},
		writer:    bucket{model: writer, role: RoleWriter},
		embedding: bucket{model: embedding, role: RoleEmbedding},
	}
}

func (l *ledger) all() []*bucket { return []*bucket{&l.planner, &l.writer, &l.embedding} }

// byModel returns one record per bucket that saw at least one request.
func (l *ledger) byModel() []types.ModelUsage {
	out := []types.ModelUsage{}
	for _, b := range l.all() {
		if b.requests > 0 {
			out = append(out, b.modelUsage())
		}
	}
	return out
}

func (l *ledger) totals() (types.Usage, int) {
	var in, out, reqs int
	for _, b := range l.all() {
		in += b.input
		out += b.output
		reqs += b.requests
	}
	return types.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}, reqs
}
