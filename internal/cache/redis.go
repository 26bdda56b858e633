// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/research-service/pkg/types"
)

// keyPrefix namespaces result keys.
const keyPrefix = "result:"

// Redis stores results as JSON strings under result:<id> with a native
// expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis connects lazily to the server at rawURL
// (redis://[user:pass@]host:port/db).
func NewRedis(rawURL string) (*Redis, error) {
	if rawURL == "" {
		rawURL = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Get returns the cached result for id.
func (r *Redis) Get(ctx context.Context, id string) (types.ResearchResult, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.ResearchResult{}, ErrNotFound
	}
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("redis get %s: %w", id, err)
	}

	var res types.ResearchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return types.ResearchResult{}, fmt.Errorf("decoding cached result %s: %w", id, err)
	}
	return res, nil
}

// Set stores result under id for ttl.
func (r *Redis) Set(ctx context.Context, id string, result types.ResearchResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", id, err)
	}
	if err := r.client.Set(ctx, keyPrefix+id, raw, ttlOrDefault(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", id, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }
