// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/research-service/pkg/types"
)

// Google embeds text with the Gemini embeddings API.
type Google struct {
	client *genai.Client
	model  string
}

func newGoogle(name string, keys types.APIKeys, client *http.Client) (Embedder, error) {
	if keys.Gemini == "" {
		return nil, errors.New("google: API key is missing")
	}
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     keys.Gemini,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Google{client: gc, model: name}, nil
}

func (g *Google) Name() string { return "google:" + g.model }

// Embed sends texts in a single batched request. GenAI has native batch support.
func (g *Google) Embed(ctx context.Context, texts []string) ([][]float32, Usage, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("GenAI batch embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, Usage{}, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vecs[i] = emb.Values
	}

	usage := Usage{Requests: 1}
	if result.Metadata != nil {
		usage.InputTokens = int(result.Metadata.BillableCharacterCount)
	}
	return vecs, usage, nil
}
