// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/httputil"
	"github.com/pdiddy/research-service/pkg/types"
)

// Reddit URL kinds.
const (
	redditPost      = "post"
	redditSubreddit = "subreddit"
	redditUser      = "user"
	redditUnknown   = "unknown"
)

var (
	redditPostRe      = regexp.MustCompile(`/r/\w+/comments/\w+`)
	redditSubredditRe = regexp.MustCompile(`/r/\w+/?$`)
	redditUserRe      = regexp.MustCompile(`/u(ser)?/\w+`)
)

// RedditLoader reads posts, subreddits, and user pages through Reddit's
// public JSON API and renders them as markdown.
type RedditLoader struct {
	Client *http.Client
	Config types.RedditConfig
	// UserAgent is required by Reddit; requests without one are throttled.
	UserAgent string
	Logger    *zap.Logger

	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// Name returns the loader identifier.
func (l *RedditLoader) Name() string { return "reddit" }

// DefaultRedditConfig returns the loader defaults.
func DefaultRedditConfig() types.RedditConfig {
	return types.RedditConfig{
		MaxComments:      10,
		MaxCommentDepth:  3,
		MinCommentScore:  2,
		MaxContentLength: 15000,
		RequestDelay:     500 * time.Millisecond,
	}
}

// Load fetches rawURL as JSON and formats it. Unrecognised URL shapes are
// rejected without a request.
func (l *RedditLoader) Load(ctx context.Context, rawURL string) (types.ScrapedPage, bool) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	kind := classifyRedditURL(rawURL)
	if kind == redditUnknown {
		logger.Warn("unrecognised reddit URL type", zap.String("url", rawURL))
		return types.ScrapedPage{}, false
	}

	body, err := l.fetch(ctx, redditJSONURL(rawURL))
	if err != nil {
		logger.Warn("reddit fetch failed", zap.String("url", rawURL), zap.Error(err))
		return types.ScrapedPage{}, false
	}

	content, title, err := l.render(kind, body)
	if err != nil {
		logger.Warn("reddit parse failed", zap.String("url", rawURL), zap.Error(err))
		return types.ScrapedPage{}, false
	}

	if charLen(content) < MinContentLength {
		logger.Debug("reddit content too short, discarding",
			zap.String("url", rawURL), zap.Int("length", charLen(content)))
		return types.ScrapedPage{}, false
	}
	if maxLen := l.Config.MaxContentLength; maxLen > 0 && charLen(content) > maxLen {
		logger.Debug("reddit content truncated",
			zap.String("url", rawURL), zap.Int("original_length", charLen(content)))
		content = truncateChars(content, maxLen) + "\n\n[truncated]"
	}

	return types.ScrapedPage{URL: rawURL, Title: title, Content: content}, true
}

func (l *RedditLoader) fetch(ctx context.Context, jsonURL string) ([]byte, error) {
	if l.Config.RequestDelay > 0 {
		sleep := l.sleep
		if sleep == nil {
			sleep = httputil.Sleep
		}
		if err := sleep(ctx, l.Config.RequestDelay); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	ua := l.UserAgent
	if ua == "" {
		ua = "research-service/0.1.0"
	}
	req.Header.Set("User-Agent", ua)

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("reddit returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxPageBytes {
		return nil, fmt.Errorf("reddit response exceeds %d bytes", maxPageBytes)
	}
	return body, nil
}

func (l *RedditLoader) render(kind string, body []byte) (content, title string, err error) {
	if kind == redditPost {
		var listings []redditListing
		if err := json.Unmarshal(body, &listings); err != nil {
			return "", "", fmt.Errorf("decoding post: %w", err)
		}
		if len(listings) < 2 || len(listings[0].Data.Children) == 0 {
			return "", "", fmt.Errorf("post response has %d listings", len(listings))
		}
		var post redditPostData
		if err := json.Unmarshal(listings[0].Data.Children[0].Data, &post); err != nil {
			return "", "", fmt.Errorf("decoding post data: %w", err)
		}
		comments := flattenComments(listings[1].Data.Children, l.Config.MaxCommentDepth, l.Config.MaxComments, l.Config.MinCommentScore, 0)
		return formatPost(post, comments), post.Title, nil
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return "", "", fmt.Errorf("decoding listing: %w", err)
	}
	content, err = formatListing(listing.Data.Children)
	if err != nil {
		return "", "", err
	}
	if len(listing.Data.Children) > 0 {
		var first redditPostData
		if json.Unmarshal(listing.Data.Children[0].Data, &first) == nil {
			title = "r/" + first.Subreddit
		}
	}
	return content, title, nil
}

// classifyRedditURL reports whether rawURL names a post, subreddit, or user.
func classifyRedditURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return redditUnknown
	}
	path := strings.TrimRight(u.Path, "/")
	switch {
	case redditPostRe.MatchString(path):
		return redditPost
	case redditSubredditRe.MatchString(path):
		return redditSubreddit
	case redditUserRe.MatchString(path):
		return redditUser
	}
	return redditUnknown
}

// redditJSONURL appends .json to the path, once, keeping the query string.
func redditJSONURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	u.Path = path
	u.RawPath = ""
	return u.String()
}
