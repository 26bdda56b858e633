// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/research-service/internal/cache"
	"github.com/pdiddy/research-service/internal/callback"
	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/metrics"
	"github.com/pdiddy/research-service/internal/research"
	"github.com/pdiddy/research-service/internal/service"
	"github.com/pdiddy/research-service/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testKey = "s3cret"

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, query string, _ research.Params, sink events.Sink) (types.ResearchResult, error) {
	if sink == nil {
		sink = events.Discard
	}
	sink.Emit(events.Started, events.StartedData{TaskID: "run000000001"})
	sink.Emit(events.Finding, events.FindingData{Source: "https://a.com", Summary: "alpha"})
	res := types.ResearchResult{TaskID: "run000000001", Status: types.StatusCompleted, Report: "# " + query, Images: []string{}}
	sink.Emit(events.Result, res)
	sink.Emit(events.Done, struct{}{})
	return res, nil
}

type nopPoster struct {
	mu    sync.Mutex
	calls int
}

func (p *nopPoster) Post(context.Context, string, types.CallbackPayload) callback.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return callback.Delivered
}

func newTestServer(t *testing.T) (*Server, *service.Service, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory()
	m := metrics.New()
	svc := &service.Service{
		Engine:       stubRunner{},
		Cache:        store,
		Callbacks:    &nopPoster{},
		AllowedHosts: []string{"hooks.example.com"},
		TTL:          time.Hour,
		Metrics:      m,
		NewID:        func() string { return "bg0000000001" },
	}
	return New(svc, Options{APIKey: testKey, Metrics: m.Handler()}), svc, store
}

func do(t *testing.T, s *Server, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func TestHealthNeedsNoKey(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "research_service_runs_in_flight")
}

func TestAPIKey(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, key := range []string{"", "wrong", testKey + "x"} {
		rec := do(t, s, http.MethodGet, "/research/abc", "", key)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "key %q", key)
		assert.Equal(t, "Invalid API key", detail(t, rec))
	}
}

func TestRequireAPIKey_EmptyConfiguredKey(t *testing.T) {
	s := New(nil, Options{})
	rec := do(t, s, http.MethodGet, "/research/abc", "", "anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamResearch(t *testing.T) {
	s, svc, store := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/research", `{"query":"tidal power","mode":"stream"}`, testKey)
	svc.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	require.Len(t, frames, 4)
	assert.Equal(t, "event: started\ndata: {\"task_id\":\"run000000001\"}", frames[0])
	assert.Equal(t, "event: finding\ndata: {\"source\":\"https://a.com\",\"summary\":\"alpha\"}", frames[1])
	assert.True(t, strings.HasPrefix(frames[2], "event: result\ndata: {"))
	assert.Equal(t, "event: done\ndata: {}", frames[3])

	res, err := store.Get(context.Background(), "run000000001")
	require.NoError(t, err)
	assert.Equal(t, "# tidal power", res.Report)
}

func TestBackgroundResearch(t *testing.T) {
	s, svc, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/research",
		`{"query":"q","mode":"background","depth":"quick","callback_url":"https://hooks.example.com/cb"}`, testKey)
	svc.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","task_id":"bg0000000001","message":"Research started. Results will be sent to callback URL."}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/research/bg0000000001", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var res types.ResearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "bg0000000001", res.TaskID)
	assert.NotNil(t, res.ExpiresAt)
}

func TestCreateResearch_Validation(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed", `{"query":`, "Malformed request body"},
		{"bad callback host", `{"query":"q","mode":"stream","callback_url":"https://evil.com/cb"}`, "Invalid callback URL"},
		{"background without callback", `{"query":"q","mode":"background"}`, "callback_url is required for background mode"},
		{"empty query", `{"query":"","mode":"stream"}`, ""},
		{"depth out of range", `{"query":"q","mode":"stream","research_depth":9}`, ""},
		{"unknown tier", `{"query":"q","mode":"stream","depth":"abyssal"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/research", tt.body, testKey)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, detail(t, rec))
			}
		})
	}
}

func TestGetResearch_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/research/missing", "", testKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Result not found or expired", detail(t, rec))
}

func TestWriteSSE_ClientGoneDrains(t *testing.T) {
	s, _, _ := newTestServer(t)

	ch := make(chan events.Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/research", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.writeSSE(c, ch))

	// The send only completes if something is still draining the channel.
	ch <- events.Event{Name: events.Status}
	close(ch)
}
