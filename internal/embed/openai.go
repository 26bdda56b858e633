// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-service/pkg/types"
)

// openaiBaseURL is the OpenAI API root. Package-level var for test substitution.
var openaiBaseURL = "https://api.openai.com/v1"

// OpenAI embeds text with the OpenAI embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

func newOpenAI(name string, keys types.APIKeys, client *http.Client) (Embedder, error) {
	if keys.OpenAI == "" {
		return nil, errors.New("openai: API key is missing")
	}
	cfg := openai.DefaultConfig(keys.OpenAI)
	cfg.BaseURL = openaiBaseURL
	cfg.HTTPClient = client
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: name}, nil
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

// Embed sends texts in a single batched request.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, Usage, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, Usage{}, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, Usage{}, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, Usage{}, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, Usage{InputTokens: resp.Usage.TotalTokens, Requests: 1}, nil
}
