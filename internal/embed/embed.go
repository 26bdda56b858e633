// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text batches into vectors. Providers are addressed by
// a provider:model identifier resolved once at startup.
package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/research-service/pkg/types"
)

// ErrUnsupportedProvider is returned by New for an unknown provider prefix.
var ErrUnsupportedProvider = errors.New("unsupported embedding provider")

// Usage is the accounting for embedding calls. Google reports billable
// characters rather than tokens; they are recorded as InputTokens.
type Usage struct {
	InputTokens int
	Requests    int
}

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, Usage, error)
}

type constructor func(name string, keys types.APIKeys, client *http.Client) (Embedder, error)

var providers = map[string]constructor{
	"openai": newOpenAI,
	"google": newGoogle,
}

// New resolves a provider:model identifier. Identifiers without a prefix
// default to openai.
func New(id string, keys types.APIKeys, client *http.Client) (Embedder, error) {
	provider, name := "openai", id
	if p, n, ok := strings.Cut(id, ":"); ok {
		provider, name = p, n
	}
	build, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if name == "" {
		return nil, fmt.Errorf("embedding model name missing in %q", id)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return build(name, keys, client)
}
