// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/research-service/pkg/types"
)

type memoryEntry struct {
	result  types.ResearchResult
	expires time.Time
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

// Get returns the live result for id.
func (m *Memory) Get(_ context.Context, id string) (types.ResearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return types.ResearchResult{}, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, id)
		return types.ResearchResult{}, ErrNotFound
	}
	return e.result, nil
}

// Set stores result under id for ttl.
func (m *Memory) Set(_ context.Context, id string, result types.ResearchResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{result: result, expires: m.now().Add(ttlOrDefault(ttl))}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
