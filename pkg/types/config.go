package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-service/0.1.0").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig selects the planner, writer, and embedding models.
type LLMConfig struct {
	// Provider is the chat provider prefix: openai, anthropic, or google.
	Provider string `json:"llm_provider" yaml:"llm_provider"`

	// FastLLM is the planner model name (without provider prefix).
	FastLLM string `json:"fast_llm" yaml:"fast_llm"`

	// SmartLLM is the report-writer model name (without provider prefix).
	SmartLLM string `json:"smart_llm" yaml:"smart_llm"`

	// EmbeddingModel is a provider:model identifier, e.g.
	// "openai:text-embedding-3-small" or "google:gemini-embedding-001".
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`

	// Keys holds the provider API keys.
	Keys APIKeys `json:"-" yaml:"-"`
}

// FastModelID returns the provider:model identifier for the planner.
func (c LLMConfig) FastModelID() string { return c.Provider + ":" + c.FastLLM }

// SmartModelID returns the provider:model identifier for the writer.
func (c LLMConfig) SmartModelID() string { return c.Provider + ":" + c.SmartLLM }

// APIKeys groups credentials for the external providers.
type APIKeys struct {
	OpenAI    string
	Anthropic string
	Gemini    string
	Firecrawl string
	Tavily    string
	Brave     string
}

// SearchConfig holds settings for the web search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the search backend: tavily or brave.
	Provider string `json:"search_provider" yaml:"search_provider"`

	// MaxResults caps hits per sub-query (default 5).
	MaxResults int `json:"search_max_results" yaml:"search_max_results"`
}

// RedditConfig tunes the Reddit JSON loader.
type RedditConfig struct {
	MaxComments      int           `json:"max_comments" yaml:"max_comments"`
	MaxCommentDepth  int           `json:"max_comment_depth" yaml:"max_comment_depth"`
	MinCommentScore  int           `json:"min_comment_score" yaml:"min_comment_score"`
	MaxContentLength int           `json:"max_content_length" yaml:"max_content_length"`
	RequestDelay     time.Duration `json:"request_delay" yaml:"request_delay"`
}

// ScrapeConfig holds settings for the page loaders.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline"`

	// DefaultLoader selects the fallback loader: firecrawl or readability.
	// Empty picks firecrawl when a Firecrawl key is configured.
	DefaultLoader string `json:"default_loader" yaml:"default_loader"`

	// FirecrawlAPIURL overrides the Firecrawl endpoint (self-hosted instances).
	FirecrawlAPIURL string `json:"firecrawl_api_url" yaml:"firecrawl_api_url"`

	Reddit RedditConfig `json:"reddit" yaml:"reddit"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	// Backend is redis, sqlite, or memory.
	Backend string `json:"cache_backend" yaml:"cache_backend"`

	// RedisURL is used by the redis backend.
	RedisURL string `json:"redis_url" yaml:"redis_url"`

	// Path is the SQLite database file used by the sqlite backend.
	Path string `json:"cache_path" yaml:"cache_path"`

	// TTL is how long results stay retrievable.
	TTL time.Duration `json:"result_ttl" yaml:"result_ttl"`
}

// CallbackConfig controls callback URL validation and delivery.
type CallbackConfig struct {
	HTTPConfig `yaml:",inline"`

	// AllowedHosts is the case-insensitive hostname allow-list.
	AllowedHosts []string `json:"allowed_callback_hosts" yaml:"allowed_callback_hosts"`

	// MaxRetries is the number of additional attempts on network errors.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// FinalCompression selects how the combined context is compressed when it
// exceeds the high-volume threshold.
type FinalCompression string

const (
	// FinalReorder ranks every passage by relevance without dropping any.
	FinalReorder FinalCompression = "reorder"
	// FinalCap keeps only the top passages.
	FinalCap FinalCompression = "cap"
)

// ResearchConfig holds engine-level policy.
type ResearchConfig struct {
	// MaxDepthTier is the deepest tier callers may request by name.
	MaxDepthTier string `json:"max_depth_tier" yaml:"max_depth_tier"`

	// TiersFile optionally overrides the built-in depth tiers.
	TiersFile string `json:"tiers_file" yaml:"tiers_file"`

	// FinalCompression is reorder (default) or cap.
	FinalCompression FinalCompression `json:"final_compression" yaml:"final_compression"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	// Listen is the address the HTTP server binds (default ":8000").
	Listen string `json:"listen" yaml:"listen"`

	// APIKey is the shared secret expected in the X-API-Key header.
	APIKey string `json:"-" yaml:"-"`
}

// ServiceConfig groups all configuration for the service.
type ServiceConfig struct {
	LogLevel string         `json:"log_level" yaml:"log_level"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Scrape   ScrapeConfig   `json:"scrape" yaml:"scrape"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Callback CallbackConfig `json:"callback" yaml:"callback"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
