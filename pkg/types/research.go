// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research service:
// the research result returned to callers, request parameters, and the
// typed configuration consumed by every stage.
package types

import "time"

// StatusCompleted is the only terminal status a ResearchResult carries.
const StatusCompleted = "completed"

// ReportType selects the synthesis template.
type ReportType string

const (
	ReportResearch ReportType = "research_report"
	ReportDetailed ReportType = "detailed_report"
)

// Mode selects how a research request is delivered to the caller.
type Mode string

const (
	ModeStream     Mode = "stream"
	ModeBackground Mode = "background"
)

// ResearchSource is one cited web document. Sources are deduplicated by URL
// when the final result is assembled.
type ResearchSource struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title" yaml:"title"`
}

// Usage holds aggregate token counts for a run. TotalTokens is always
// PromptTokens + CompletionTokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// ModelUsage is the usage attributed to one model acting in one role
// (planner, writer, or embedding).
type ModelUsage struct {
	Model            string `json:"model" yaml:"model"`
	Role             string `json:"role" yaml:"role"`
	PromptTokens     int    `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens" yaml:"total_tokens"`
	Requests         int    `json:"requests" yaml:"requests"`
}

// ResearchMetadata describes how a result was produced.
type ResearchMetadata struct {
	Requests    int    `json:"requests" yaml:"requests"`
	LLMProvider string `json:"llm_provider" yaml:"llm_provider"`
	FastLLM     string `json:"fast_llm" yaml:"fast_llm"`
	SmartLLM    string `json:"smart_llm" yaml:"smart_llm"`
}

// ResearchResult is the final output of one pipeline run. It is created once
// at the end of a run and not mutated afterwards, except that the service
// layer may replace TaskID and set ExpiresAt before caching.
type ResearchResult struct {
	TaskID       string           `json:"task_id" yaml:"task_id"`
	Status       string           `json:"status" yaml:"status"`
	Report       string           `json:"report" yaml:"report"`
	Sources      []ResearchSource `json:"sources" yaml:"sources"`
	SourceURLs   []string         `json:"source_urls" yaml:"source_urls"`
	Images       []string         `json:"images" yaml:"images"`
	Usage        Usage            `json:"usage" yaml:"usage"`
	UsageByModel []ModelUsage     `json:"usage_by_model" yaml:"usage_by_model"`
	Metadata     ResearchMetadata `json:"metadata" yaml:"metadata"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// ResearchRequest is the caller-facing request. Depth names a tier; when it
// is empty the explicit ResearchDepth/ResearchBreadth/ReportType overrides
// apply.
type ResearchRequest struct {
	Query           string `json:"query"`
	Mode            Mode   `json:"mode"`
	Depth           string `json:"depth,omitempty"`
	ResearchDepth   *int   `json:"research_depth,omitempty"`
	ResearchBreadth *int   `json:"research_breadth,omitempty"`
	ReportType      string `json:"report_type,omitempty"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

// CallbackPayload is the body POSTed to a caller's callback URL.
type CallbackPayload struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
}

// SearchResult is one web search hit.
type SearchResult struct {
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// ScrapedPage is the fetched content of one URL. Images are deduplicated in
// first-seen order.
type ScrapedPage struct {
	URL     string   `json:"url" yaml:"url"`
	Title   string   `json:"title" yaml:"title"`
	Content string   `json:"content" yaml:"content"`
	Images  []string `json:"images,omitempty" yaml:"images,omitempty"`
}
