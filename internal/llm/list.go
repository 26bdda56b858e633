// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateList calls m and parses its reply as a JSON array of strings.
// Usage is returned even when parsing fails.
func GenerateList(ctx context.Context, m Model, prompt string) ([]string, Usage, error) {
	resp, err := m.Generate(ctx, prompt)
	if err != nil {
		return nil, Usage{}, err
	}
	items, err := ParseStringList(resp.Text)
	if err != nil {
		return nil, resp.Usage, err
	}
	return items, resp.Usage, nil
}

// ParseStringList extracts a list of strings from model output. It accepts a
// bare JSON array, an array inside a markdown code fence or surrounding
// prose, and an object whose first array-valued field holds the list.
func ParseStringList(text string) ([]string, error) {
	text = stripFence(strings.TrimSpace(text))

	if list, ok := decodeArray(text); ok {
		return clean(list), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		for _, key := range []string{"queries", "items", "results"} {
			if raw, ok := obj[key]; ok {
				if list, ok := decodeArray(string(raw)); ok {
					return clean(list), nil
				}
			}
		}
		for _, raw := range obj {
			if list, ok := decodeArray(string(raw)); ok {
				return clean(list), nil
			}
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if list, ok := decodeArray(text[start : end+1]); ok {
			return clean(list), nil
		}
	}

	return nil, fmt.Errorf("no string list in model output (%d chars)", len(text))
}

func decodeArray(s string) ([]string, bool) {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, false
	}
	return list, true
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func clean(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
