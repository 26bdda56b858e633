// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/httputil"
	"github.com/pdiddy/research-service/pkg/types"
)

// firecrawlAPIBase is the hosted Firecrawl API root. Declared as a var so
// tests can substitute an httptest server.
var firecrawlAPIBase = "https://api.firecrawl.dev"

// FirecrawlLoader scrapes pages to markdown through the Firecrawl API.
type FirecrawlLoader struct {
	Client *http.Client
	APIKey string
	// APIURL overrides the API root for self-hosted instances.
	APIURL string
	Logger *zap.Logger
}

// Name returns the loader identifier.
func (l *FirecrawlLoader) Name() string { return "firecrawl" }

type firecrawlRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string   `json:"markdown"`
		Images   []string `json:"images"`
		Metadata struct {
			Title   string          `json:"title"`
			OGImage string          `json:"ogImage"`
			Image   json.RawMessage `json:"image"`
		} `json:"metadata"`
	} `json:"data"`
}

// Load scrapes rawURL. Pages under MinContentLength characters are discarded.
func (l *FirecrawlLoader) Load(ctx context.Context, rawURL string) (types.ScrapedPage, bool) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fr, err := l.scrape(ctx, rawURL)
	if err != nil {
		logger.Warn("firecrawl scrape failed", zap.String("url", rawURL), zap.Error(err))
		return types.ScrapedPage{}, false
	}

	markdown := fr.Data.Markdown
	if charLen(markdown) < MinContentLength {
		logger.Debug("firecrawl content too short, discarding",
			zap.String("url", rawURL), zap.Int("length", charLen(markdown)))
		return types.ScrapedPage{}, false
	}

	page := types.ScrapedPage{
		URL:     rawURL,
		Title:   fr.Data.Metadata.Title,
		Content: markdown,
		Images:  firecrawlImages(fr),
	}
	logger.Debug("firecrawl loaded",
		zap.String("url", rawURL),
		zap.Int("content_length", charLen(markdown)),
		zap.Int("image_count", len(page.Images)))
	return page, true
}

func (l *FirecrawlLoader) scrape(ctx context.Context, rawURL string) (firecrawlResponse, error) {
	base := firecrawlAPIBase
	if l.APIURL != "" {
		base = l.APIURL
	}
	payload, err := json.Marshal(firecrawlRequest{URL: rawURL, Formats: []string{"markdown"}})
	if err != nil {
		return firecrawlResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return firecrawlResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.APIKey)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return firecrawlResponse{}, fmt.Errorf("Firecrawl API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return firecrawlResponse{}, fmt.Errorf("Firecrawl API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fr firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return firecrawlResponse{}, fmt.Errorf("parsing Firecrawl response: %w", err)
	}
	if !fr.Success && fr.Error != "" {
		return firecrawlResponse{}, fmt.Errorf("Firecrawl: %s", fr.Error)
	}
	return fr, nil
}

// firecrawlImages collects image URLs from the images list and the page
// metadata, which carries either a single URL or a list under "image".
func firecrawlImages(fr firecrawlResponse) []string {
	images := append([]string{}, fr.Data.Images...)
	images = append(images, fr.Data.Metadata.OGImage)

	if raw := fr.Data.Metadata.Image; len(raw) > 0 {
		var one string
		var many []string
		if json.Unmarshal(raw, &one) == nil {
			images = append(images, one)
		} else if json.Unmarshal(raw, &many) == nil {
			images = append(images, many...)
		}
	}
	return dedupe(images)
}
