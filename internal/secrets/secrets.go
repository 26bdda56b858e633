// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognised key files: api-key, openai-api-key, anthropic-api-key, gemini-api-key,
// firecrawl-api-key, tavily-api-key, brave-api-key, redis-url.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Known lists the secret files the service reads.
var Known = []string{
	"api-key",
	"openai-api-key",
	"anthropic-api-key",
	"gemini-api-key",
	"firecrawl-api-key",
	"tavily-api-key",
	"brave-api-key",
	"redis-url",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ConfigKey maps a secret filename to its configuration key:
// openai-api-key becomes openai_api_key.
func ConfigKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

// ConfigValues re-keys loaded secrets by configuration key.
func ConfigValues(secrets map[string]string) map[string]string {
	out := make(map[string]string, len(secrets))
	for name, v := range secrets {
		out[ConfigKey(name)] = v
	}
	return out
}

// Names returns the loaded secret names, sorted, for logging without values.
func Names(secrets map[string]string) []string {
	names := make([]string, 0, len(secrets))
	for k := range secrets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
