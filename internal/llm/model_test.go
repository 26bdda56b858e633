// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-service/pkg/types"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		id           string
		wantProvider string
		wantName     string
	}{
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"anthropic:claude-sonnet-4-5", "anthropic", "claude-sonnet-4-5"},
		{"google:gemini-2.5-flash", "google", "gemini-2.5-flash"},
		{"gpt-4o", "openai", "gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, n := ParseID(tt.id)
			assert.Equal(t, tt.wantProvider, p)
			assert.Equal(t, tt.wantName, n)
		})
	}
}

func TestOpen_UnsupportedProvider(t *testing.T) {
	_, err := Open("mistral:large", types.APIKeys{OpenAI: "k"}, nil)
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestOpen_MissingName(t *testing.T) {
	_, err := Open("openai:", types.APIKeys{OpenAI: "k"}, nil)
	require.Error(t, err)
}

func TestOpen_MissingKey(t *testing.T) {
	_, err := Open("anthropic:claude-sonnet-4-5", types.APIKeys{}, nil)
	require.Error(t, err)
}

func TestOpen_ResolvesProvider(t *testing.T) {
	keys := types.APIKeys{OpenAI: "o", Anthropic: "a"}

	m, err := Open("openai:gpt-4o", keys, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o", m.Name())

	m, err = Open("anthropic:claude-sonnet-4-5", keys, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic:claude-sonnet-4-5", m.Name())
}

func TestUsage_BillableOutput(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5, ReasoningTokens: 2, Requests: 1}
	assert.Equal(t, 7, u.BillableOutput())
	assert.Equal(t, 5, Usage{OutputTokens: 5}.BillableOutput())
}
