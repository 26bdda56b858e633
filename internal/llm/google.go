// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/research-service/pkg/types"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

func newGoogle(name string, keys types.APIKeys, client *http.Client) (Model, error) {
	if keys.Gemini == "" {
		return nil, errors.New("google: API key is missing")
	}
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     keys.Gemini,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &Gemini{client: gc, model: name}, nil
}

// Name returns the provider:model identifier.
func (g *Gemini) Name() string { return "google:" + g.model }

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return Response{}, fmt.Errorf("GenAI generate: %w", err)
	}

	out := Response{Text: resp.Text(), Usage: Usage{Requests: 1}}
	if m := resp.UsageMetadata; m != nil {
		out.Usage.InputTokens = int(m.PromptTokenCount)
		out.Usage.OutputTokens = int(m.CandidatesTokenCount)
		out.Usage.ReasoningTokens = int(m.ThoughtsTokenCount)
	}
	if out.Text == "" {
		return Response{}, errors.New("GenAI returned empty content")
	}
	return out, nil
}
