// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

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

// OpenAI calls the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func newOpenAI(name string, keys types.APIKeys, client *http.Client) (Model, error) {
	if keys.OpenAI == "" {
		return nil, errors.New("openai: API key is missing")
	}
	cfg := openai.DefaultConfig(keys.OpenAI)
	cfg.BaseURL = openaiBaseURL
	cfg.HTTPClient = client
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: name}, nil
}

// Name returns the provider:model identifier.
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Generate sends prompt as a single user message.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("openai returned no choices")
	}

	// completion_tokens already includes reasoning tokens; split them so
	// BillableOutput does not count them twice.
	reasoning := 0
	if d := resp.Usage.CompletionTokensDetails; d != nil {
		reasoning = d.ReasoningTokens
	}
	return Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:     resp.Usage.PromptTokens,
			OutputTokens:    resp.Usage.CompletionTokens - reasoning,
			ReasoningTokens: reasoning,
			Requests:        1,
		},
	}, nil
}
