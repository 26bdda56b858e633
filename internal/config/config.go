// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config maps viper settings onto the typed service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/research-service/internal/callback"
	"github.com/pdiddy/research-service/internal/scrape"
	"github.com/pdiddy/research-service/pkg/types"
)

// Configuration keys.
const (
	KeyLogLevel             = "log_level"
	KeyAPIKey               = "api_key"
	KeyListen               = "listen"
	KeyOpenAIKey            = "openai_api_key"
	KeyAnthropicKey         = "anthropic_api_key"
	KeyGeminiKey            = "gemini_api_key"
	KeyFirecrawlKey         = "firecrawl_api_key"
	KeyFirecrawlURL         = "firecrawl_api_url"
	KeyTavilyKey            = "tavily_api_key"
	KeyBraveKey             = "brave_api_key"
	KeySearchProvider       = "search_provider"
	KeySearchMaxResults     = "search_max_results"
	KeySearchTimeout        = "search_timeout"
	KeyScrapeTimeout        = "scrape_timeout"
	KeyUserAgent            = "user_agent"
	KeyDefaultLoader        = "default_loader"
	KeyRedditMaxComments    = "reddit_max_comments"
	KeyRedditMaxDepth       = "reddit_max_comment_depth"
	KeyRedditMinScore       = "reddit_min_comment_score"
	KeyRedditMaxLength      = "reddit_max_content_length"
	KeyRedditRequestDelay   = "reddit_request_delay"
	KeyCacheBackend         = "cache_backend"
	KeyRedisURL             = "redis_url"
	KeyCachePath            = "cache_path"
	KeyResultTTLSeconds     = "result_ttl_seconds"
	KeyAllowedCallbackHosts = "allowed_callback_hosts"
	KeyCallbackMaxRetries   = "callback_max_retries"
	KeyCallbackBaseDelay    = "callback_base_delay"
	KeyCallbackMaxDelay     = "callback_max_delay"
	KeyCallbackTimeout      = "callback_timeout"
	KeyLLMProvider          = "llm_provider"
	KeyFastLLM              = "fast_llm"
	KeySmartLLM             = "smart_llm"
	KeyEmbeddingModel       = "embedding_model"
	KeyMaxDepthTier         = "max_depth_tier"
	KeyTiersFile            = "tiers_file"
	KeyFinalCompression     = "final_compression"
)

// DefaultUserAgent identifies the service to scraped sites.
const DefaultUserAgent = "research-service/0.1"

// SetDefaults registers the default for every key that has one.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListen, ":8000")
	v.SetDefault(KeySearchProvider, "tavily")
	v.SetDefault(KeySearchMaxResults, 5)
	v.SetDefault(KeySearchTimeout, 30*time.Second)
	v.SetDefault(KeyScrapeTimeout, 60*time.Second)
	v.SetDefault(KeyUserAgent, DefaultUserAgent)
	v.SetDefault(KeyFirecrawlURL, "https://api.firecrawl.dev")
	reddit := scrape.DefaultRedditConfig()
	v.SetDefault(KeyRedditMaxComments, reddit.MaxComments)
	v.SetDefault(KeyRedditMaxDepth, reddit.MaxCommentDepth)
	v.SetDefault(KeyRedditMinScore, reddit.MinCommentScore)
	v.SetDefault(KeyRedditMaxLength, reddit.MaxContentLength)
	v.SetDefault(KeyRedditRequestDelay, reddit.RequestDelay)
	v.SetDefault(KeyCacheBackend, "redis")
	v.SetDefault(KeyRedisURL, "redis://localhost:6379")
	v.SetDefault(KeyCachePath, "data/results.db")
	v.SetDefault(KeyResultTTLSeconds, 3600)
	v.SetDefault(KeyAllowedCallbackHosts, "")
	v.SetDefault(KeyCallbackMaxRetries, callback.DefaultMaxRetries)
	v.SetDefault(KeyCallbackBaseDelay, callback.DefaultBaseDelay)
	v.SetDefault(KeyCallbackMaxDelay, callback.DefaultMaxDelay)
	v.SetDefault(KeyCallbackTimeout, callback.DefaultTimeout)
	v.SetDefault(KeyLLMProvider, "openai")
	v.SetDefault(KeyFastLLM, "gpt-4o-mini")
	v.SetDefault(KeySmartLLM, "gpt-4o")
	v.SetDefault(KeyEmbeddingModel, "openai:text-embedding-3-small")
	v.SetDefault(KeyMaxDepthTier, "deep")
	v.SetDefault(KeyFinalCompression, string(types.FinalReorder))
}

// ApplySecrets installs secret values as defaults, so any value from a
// flag, environment variable, or config file still wins.
func ApplySecrets(v *viper.Viper, values map[string]string) {
	for k, val := range values {
		v.SetDefault(k, val)
	}
}

// FromViper builds the service configuration from v.
func FromViper(v *viper.Viper) (types.ServiceConfig, error) {
	fc := types.FinalCompression(strings.ToLower(v.GetString(KeyFinalCompression)))
	switch fc {
	case "":
		fc = types.FinalReorder
	case types.FinalReorder, types.FinalCap:
	default:
		return types.ServiceConfig{}, fmt.Errorf("%s must be reorder or cap, got %q", KeyFinalCompression, fc)
	}

	userAgent := v.GetString(KeyUserAgent)
	keys := types.APIKeys{
		OpenAI:    v.GetString(KeyOpenAIKey),
		Anthropic: v.GetString(KeyAnthropicKey),
		Gemini:    v.GetString(KeyGeminiKey),
		Firecrawl: v.GetString(KeyFirecrawlKey),
		Tavily:    v.GetString(KeyTavilyKey),
		Brave:     v.GetString(KeyBraveKey),
	}

	cfg := types.ServiceConfig{
		LogLevel: v.GetString(KeyLogLevel),
		LLM: types.LLMConfig{
			Provider:       v.GetString(KeyLLMProvider),
			FastLLM:        v.GetString(KeyFastLLM),
			SmartLLM:       v.GetString(KeySmartLLM),
			EmbeddingModel: v.GetString(KeyEmbeddingModel),
			Keys:           keys,
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{Timeout: v.GetDuration(KeySearchTimeout), UserAgent: userAgent},
			Provider:   v.GetString(KeySearchProvider),
			MaxResults: v.GetInt(KeySearchMaxResults),
		},
		Scrape: types.ScrapeConfig{
			HTTPConfig:      types.HTTPConfig{Timeout: v.GetDuration(KeyScrapeTimeout), UserAgent: userAgent},
			DefaultLoader:   v.GetString(KeyDefaultLoader),
			FirecrawlAPIURL: v.GetString(KeyFirecrawlURL),
			Reddit: types.RedditConfig{
				MaxComments:      v.GetInt(KeyRedditMaxComments),
				MaxCommentDepth:  v.GetInt(KeyRedditMaxDepth),
				MinCommentScore:  v.GetInt(KeyRedditMinScore),
				MaxContentLength: v.GetInt(KeyRedditMaxLength),
				RequestDelay:     v.GetDuration(KeyRedditRequestDelay),
			},
		},
		Cache: types.CacheConfig{
			Backend:  v.GetString(KeyCacheBackend),
			RedisURL: v.GetString(KeyRedisURL),
			Path:     v.GetString(KeyCachePath),
			TTL:      time.Duration(v.GetInt(KeyResultTTLSeconds)) * time.Second,
		},
		Callback: types.CallbackConfig{
			HTTPConfig:   types.HTTPConfig{Timeout: v.GetDuration(KeyCallbackTimeout), UserAgent: userAgent},
			AllowedHosts: callback.ParseHosts(v.GetString(KeyAllowedCallbackHosts)),
			MaxRetries:   v.GetInt(KeyCallbackMaxRetries),
			BaseDelay:    v.GetDuration(KeyCallbackBaseDelay),
			MaxDelay:     v.GetDuration(KeyCallbackMaxDelay),
		},
		Research: types.ResearchConfig{
			MaxDepthTier:     v.GetString(KeyMaxDepthTier),
			TiersFile:        v.GetString(KeyTiersFile),
			FinalCompression: fc,
		},
		Server: types.ServerConfig{
			Listen: v.GetString(KeyListen),
			APIKey: v.GetString(KeyAPIKey),
		},
	}
	return cfg, nil
}
