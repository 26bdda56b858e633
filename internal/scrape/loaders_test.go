// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longMarkdown = "# Title\n\n" + strings.Repeat("Substantive paragraph text. ", 10)

// --- Firecrawl ---

func TestFirecrawlLoader_Load(t *testing.T) {
	var captured firecrawlRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprintf(w, `{"success":true,"data":{
			"markdown":%q,
			"images":["https://img/1.png","https://img/2.png","https://img/1.png"],
			"metadata":{"title":"Page Title","ogImage":"https://img/og.png","image":["https://img/2.png","https://img/3.png"]}}}`, longMarkdown)
	}))
	defer ts.Close()

	l := &FirecrawlLoader{Client: ts.Client(), APIKey: "fc-key", APIURL: ts.URL}
	page, ok := l.Load(context.Background(), "https://example.com/a")
	require.True(t, ok)

	assert.Equal(t, "https://example.com/a", captured.URL)
	assert.Equal(t, []string{"markdown"}, captured.Formats)
	assert.Equal(t, "Page Title", page.Title)
	assert.Equal(t, longMarkdown, page.Content)
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png", "https://img/og.png", "https://img/3.png"}, page.Images)
}

func TestFirecrawlLoader_DefaultBase(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"success":true,"data":{"markdown":%q,"metadata":{"image":"https://img/x.png"}}}`, longMarkdown)
	}))
	defer ts.Close()

	old := firecrawlAPIBase
	firecrawlAPIBase = ts.URL
	defer func() { firecrawlAPIBase = old }()

	page, ok := (&FirecrawlLoader{Client: ts.Client()}).Load(context.Background(), "https://example.com")
	require.True(t, ok)
	assert.Equal(t, []string{"https://img/x.png"}, page.Images)
}

func TestFirecrawlLoader_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"short content", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"success":true,"data":{"markdown":"too short"}}`)
		}},
		{"http error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "payment required", http.StatusPaymentRequired)
		}},
		{"provider error", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"success":false,"error":"blocked by robots.txt"}`)
		}},
		{"malformed", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"success":`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, ok := (&FirecrawlLoader{Client: ts.Client(), APIURL: ts.URL}).Load(context.Background(), "https://example.com")
			assert.False(t, ok)
		})
	}
}

// --- Readability ---

const articleHTML = `<!DOCTYPE html>
<html><head><title>Readable Article</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Readable Article</h1>
<p>%s</p>
<img src="/images/figure1.png" alt="figure">
<p>%s</p>
</article>
</body></html>`

func TestReadabilityLoader_Load(t *testing.T) {
	para := strings.Repeat("The main body of the article explains the topic in depth. ", 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "research-service/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, articleHTML, para, para)
	}))
	defer ts.Close()

	l := &ReadabilityLoader{Client: ts.Client(), UserAgent: "research-service/test"}
	page, ok := l.Load(context.Background(), ts.URL+"/post")
	require.True(t, ok)

	assert.Equal(t, ts.URL+"/post", page.URL)
	assert.Contains(t, page.Content, "explains the topic in depth")
	assert.Contains(t, page.Images, ts.URL+"/images/figure1.png")
}

func TestReadabilityLoader_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4"))
		case "/short":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body><p>tiny</p></body></html>")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	l := &ReadabilityLoader{Client: ts.Client()}
	for _, path := range []string{"/pdf", "/short", "/missing"} {
		_, ok := l.Load(context.Background(), ts.URL+path)
		assert.False(t, ok, path)
	}
}
