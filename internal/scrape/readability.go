// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pdiddy/research-service/pkg/types"
)

// maxPageBytes caps how much of a response body any loader reads.
var maxPageBytes int64 = 5 << 20

// ReadabilityLoader fetches a page directly and extracts its main article.
type ReadabilityLoader struct {
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
}

// Name returns the loader identifier.
func (l *ReadabilityLoader) Name() string { return "readability" }

// Load fetches rawURL and returns the article text. Pages under
// MinContentLength characters are discarded.
func (l *ReadabilityLoader) Load(ctx context.Context, rawURL string) (types.ScrapedPage, bool) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	page, err := l.load(ctx, rawURL)
	if err != nil {
		logger.Warn("readability fetch failed", zap.String("url", rawURL), zap.Error(err))
		return types.ScrapedPage{}, false
	}
	if charLen(page.Content) < MinContentLength {
		logger.Debug("readability content too short, discarding",
			zap.String("url", rawURL), zap.Int("length", charLen(page.Content)))
		return types.ScrapedPage{}, false
	}
	return page, true
}

func (l *ReadabilityLoader) load(ctx context.Context, rawURL string) (types.ScrapedPage, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return types.ScrapedPage{}, fmt.Errorf("parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.ScrapedPage{}, fmt.Errorf("creating request: %w", err)
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.ScrapedPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.ScrapedPage{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return types.ScrapedPage{}, fmt.Errorf("unsupported content type %q", ct)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return types.ScrapedPage{}, fmt.Errorf("extracting article: %w", err)
	}

	images := append([]string{article.Image}, imageSources(article.Content, pageURL)...)
	return types.ScrapedPage{
		URL:     rawURL,
		Title:   strings.TrimSpace(article.Title),
		Content: strings.TrimSpace(article.TextContent),
		Images:  dedupe(images),
	}, nil
}

// imageSources returns the absolute src of every <img> in fragment, in
// document order.
func imageSources(fragment string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, a := range n.Attr {
				if a.Key != "src" || a.Val == "" || strings.HasPrefix(a.Val, "data:") {
					continue
				}
				if ref, err := base.Parse(a.Val); err == nil {
					out = append(out, ref.String())
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
