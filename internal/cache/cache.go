// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores completed research results by task id for a bounded
// time. Backends are interchangeable behind Store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/research-service/pkg/types"
)

// ErrNotFound is returned by Get when no live entry exists for an id.
var ErrNotFound = errors.New("result not found")

// DefaultTTL is used when a backend is given a non-positive TTL.
const DefaultTTL = time.Hour

// Store is a get/set result cache. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (types.ResearchResult, error)
	Set(ctx context.Context, id string, result types.ResearchResult, ttl time.Duration) error
	Close() error
}

// Open builds the backend named by cfg.Backend. An empty backend selects
// redis.
func Open(cfg types.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "redis":
		return NewRedis(cfg.RedisURL)
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
