// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm invokes chat models. A model is addressed by a provider:model
// identifier and resolved once at startup through a closed provider table.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/research-service/pkg/types"
)

// ErrUnsupportedProvider is returned by Open for an unknown provider prefix.
var ErrUnsupportedProvider = errors.New("unsupported llm provider")

// Usage is the token accounting for one or more model calls.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
	Requests        int
}

// BillableOutput returns output tokens with reasoning tokens folded in.
func (u Usage) BillableOutput() int { return u.OutputTokens + u.ReasoningTokens }

// Response is the text produced by one Generate call.
type Response struct {
	Text  string
	Usage Usage
}

// Model generates text for a prompt. Implementations must be safe for
// concurrent use.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (Response, error)
}

// opener builds a Model for a bare model name.
type opener func(name string, keys types.APIKeys, client *http.Client) (Model, error)

var providers = map[string]opener{
	"openai":    newOpenAI,
	"anthropic": newAnthropic,
	"google":    newGoogle,
}

// ParseID splits a provider:model identifier. Identifiers without a prefix
// default to openai.
func ParseID(id string) (provider, name string) {
	if p, n, ok := strings.Cut(id, ":"); ok {
		return p, n
	}
	return "openai", id
}

// Open resolves a provider:model identifier to a Model.
func Open(id string, keys types.APIKeys, client *http.Client) (Model, error) {
	provider, name := ParseID(id)
	open, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if name == "" {
		return nil, fmt.Errorf("model name missing in %q", id)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return open(name, keys, client)
}
