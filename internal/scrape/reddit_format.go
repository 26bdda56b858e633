// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type redditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditPostData struct {
	Title               string `json:"title"`
	Author              string `json:"author"`
	Subreddit           string `json:"subreddit"`
	Score               int    `json:"score"`
	Selftext            string `json:"selftext"`
	NumComments         int    `json:"num_comments"`
	CrosspostParentList []struct {
		Selftext string `json:"selftext"`
	} `json:"crosspost_parent_list"`
}

type redditCommentData struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
	// Replies is an empty string when there are none, else a listing.
	Replies json.RawMessage `json:"replies"`
}

// comment is one accepted node of a flattened comment tree.
type comment struct {
	Author string
	Body   string
	Score  int
	Depth  int
}

// flattenComments walks a comment tree depth-first. It keeps at most
// maxComments nodes, none at depth >= maxDepth, none scoring below minScore,
// and skips "more" stubs and deleted or removed comments.
func flattenComments(children []redditThing, maxDepth, maxComments, minScore, depth int) []comment {
	var results []comment
	if depth >= maxDepth {
		return results
	}

	for _, child := range children {
		if len(results) >= maxComments {
			break
		}
		if child.Kind != "t1" {
			continue
		}

		var data redditCommentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			continue
		}
		if isRemoved(data.Body) || data.Body == "" || isRemoved(data.Author) {
			continue
		}
		if data.Score < minScore {
			continue
		}

		results = append(results, comment{Author: data.Author, Body: data.Body, Score: data.Score, Depth: depth})

		replies := replyChildren(data.Replies)
		if remaining := maxComments - len(results); remaining > 0 && len(replies) > 0 {
			results = append(results, flattenComments(replies, maxDepth, remaining, minScore, depth+1)...)
		}
	}

	if len(results) > maxComments {
		results = results[:maxComments]
	}
	return results
}

func isRemoved(s string) bool { return s == "[deleted]" || s == "[removed]" }

func replyChildren(raw json.RawMessage) []redditThing {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var listing redditListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil
	}
	return listing.Data.Children
}

// formatPost renders a post and its surviving comments. Each comment level
// adds one "> " quote prefix.
func formatPost(post redditPostData, comments []comment) string {
	selftext := post.Selftext
	if selftext == "" && len(post.CrosspostParentList) > 0 {
		selftext = post.CrosspostParentList[0].Selftext
	}

	lines := []string{
		"## " + orDefault(post.Title, "Untitled"),
		fmt.Sprintf("**Posted by** u/%s in r/%s | %d points",
			orDefault(post.Author, "unknown"), orDefault(post.Subreddit, "unknown"), post.Score),
		"",
	}
	if selftext != "" {
		lines = append(lines, selftext, "")
	}

	if len(comments) > 0 {
		lines = append(lines, "---", "### Top Comments", "")
		for _, c := range comments {
			indent := strings.Repeat("> ", c.Depth)
			lines = append(lines, fmt.Sprintf("%s**u/%s** (%d points):", indent, c.Author, c.Score))
			for _, bodyLine := range splitLines(c.Body) {
				lines = append(lines, indent+bodyLine)
			}
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// formatListing renders subreddit and user listings: one bullet per post
// with an optional 200-character preview.
func formatListing(children []redditThing) (string, error) {
	var lines []string
	for _, child := range children {
		if child.Kind != "t3" {
			continue
		}
		var data redditPostData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return "", fmt.Errorf("decoding listing entry: %w", err)
		}
		lines = append(lines, fmt.Sprintf("- **%s** (u/%s, %d pts, %d comments)",
			orDefault(data.Title, "Untitled"), orDefault(data.Author, "unknown"), data.Score, data.NumComments))
		if data.Selftext != "" {
			lines = append(lines, "  "+strings.ReplaceAll(truncateChars(data.Selftext, 200), "\n", " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// splitLines splits on \n, \r\n, or \r without a trailing empty line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
