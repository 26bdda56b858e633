// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package service

import (
	"context"
	"errors"
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
	"github.com/pdiddy/research-service/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRunner struct {
	err error

	mu      sync.Mutex
	params  []research.Params
	ctxErrs []error
}

func (f *fakeRunner) Run(ctx context.Context, query string, p research.Params, sink events.Sink) (types.ResearchResult, error) {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()

	if sink == nil {
		sink = events.Discard
	}
	sink.Emit(events.Started, events.StartedData{TaskID: "engine00id00"})
	sink.Emit(events.Status, events.StatusData{Step: "planning", Message: "Generating research questions..."})
	if f.err != nil {
		return types.ResearchResult{}, f.err
	}
	res := types.ResearchResult{TaskID: "engine00id00", Status: types.StatusCompleted, Report: "# " + query}
	sink.Emit(events.Result, res)
	sink.Emit(events.Done, struct{}{})
	return res, nil
}

type fakePoster struct {
	mu       sync.Mutex
	urls     []string
	payloads []types.CallbackPayload
}

func (f *fakePoster) Post(_ context.Context, url string, p types.CallbackPayload) callback.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	f.payloads = append(f.payloads, p)
	return callback.Delivered
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (types.ResearchResult, error) {
	return types.ResearchResult{}, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, types.ResearchResult, time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) Close() error { return nil }

var fixedNow = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func newService(runner *fakeRunner) (*Service, *cache.Memory, *fakePoster) {
	store := cache.NewMemory()
	poster := &fakePoster{}
	return &Service{
		Engine:       runner,
		Cache:        store,
		Callbacks:    poster,
		AllowedHosts: []string{"hooks.example.com"},
		TTL:          time.Hour,
		Metrics:      metrics.New(),
		Now:          func() time.Time { return fixedNow },
		NewID:        func() string { return "bg0000000001" },
	}, store, poster
}

func drain(ch <-chan events.Event) []string {
	var names []string
	for ev := range ch {
		names = append(names, ev.Name)
	}
	return names
}

func intp(v int) *int { return &v }

func TestValidate(t *testing.T) {
	s, _, _ := newService(&fakeRunner{})

	tests := []struct {
		name    string
		req     types.ResearchRequest
		want    research.Params
		wantErr error
	}{
		{"defaults", types.ResearchRequest{Query: "q"}, research.Params{ReportType: types.ReportResearch, Depth: 2, Breadth: 4}, nil},
		{"tier", types.ResearchRequest{Query: "q", Depth: "deep"}, research.Params{ReportType: types.ReportDetailed, Depth: 3, Breadth: 6}, nil},
		{"explicit", types.ResearchRequest{Query: "q", ResearchDepth: intp(1), ResearchBreadth: intp(3)}, research.Params{ReportType: types.ReportResearch, Depth: 1, Breadth: 3}, nil},
		{"empty query", types.ResearchRequest{Query: "  "}, research.Params{}, ErrInvalidRequest},
		{"bad mode", types.ResearchRequest{Query: "q", Mode: "batch"}, research.Params{}, ErrInvalidRequest},
		{"depth too deep", types.ResearchRequest{Query: "q", ResearchDepth: intp(6)}, research.Params{}, ErrInvalidRequest},
		{"breadth zero", types.ResearchRequest{Query: "q", ResearchBreadth: intp(0)}, research.Params{}, ErrInvalidRequest},
		{"bad report type", types.ResearchRequest{Query: "q", ReportType: "essay"}, research.Params{}, ErrInvalidRequest},
		{"unknown tier", types.ResearchRequest{Query: "q", Depth: "extreme"}, research.Params{}, ErrInvalidRequest},
		{"callback host not allowed", types.ResearchRequest{Query: "q", CallbackURL: "https://evil.com/cb"}, research.Params{}, callback.ErrInvalidURL},
		{"background without callback", types.ResearchRequest{Query: "q", Mode: types.ModeBackground}, research.Params{}, ErrCallbackRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Validate(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStream_CachesAndCallsBack(t *testing.T) {
	runner := &fakeRunner{}
	s, store, poster := newService(runner)

	ch, err := s.Stream(context.Background(), types.ResearchRequest{
		Query:       "solar storage",
		CallbackURL: "https://hooks.example.com/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{events.Started, events.Status, events.Result, events.Done}, drain(ch))
	s.Wait()

	res, err := store.Get(context.Background(), "engine00id00")
	require.NoError(t, err)
	assert.Equal(t, "# solar storage", res.Report)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, fixedNow.Add(time.Hour), *res.ExpiresAt)

	require.Len(t, poster.payloads, 1)
	assert.Equal(t, "https://hooks.example.com/cb", poster.urls[0])
	assert.Equal(t, types.CallbackPayload{TaskID: "engine00id00", Status: "completed", ResultURL: "/research/engine00id00"}, poster.payloads[0])
}

func TestStream_FailureEmitsError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("writer exploded")}
	s, store, poster := newService(runner)

	ch, err := s.Stream(context.Background(), types.ResearchRequest{Query: "q"})
	require.NoError(t, err)

	var last events.Event
	var names []string
	for ev := range ch {
		names = append(names, ev.Name)
		last = ev
	}
	s.Wait()

	assert.Equal(t, []string{events.Started, events.Status, events.Error}, names)
	assert.Equal(t, events.ErrorData{Message: "Research failed"}, last.Data)
	_, err = store.Get(context.Background(), "engine00id00")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.Empty(t, poster.payloads)
}

func TestStream_ClientDisconnectDoesNotCancelRun(t *testing.T) {
	runner := &fakeRunner{}
	s, store, _ := newService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := s.Stream(ctx, types.ResearchRequest{Query: "q"})
	require.NoError(t, err)
	drain(ch)
	s.Wait()

	require.Len(t, runner.ctxErrs, 1)
	assert.NoError(t, runner.ctxErrs[0])
	_, err = store.Get(context.Background(), "engine00id00")
	assert.NoError(t, err)
}

func TestStream_ValidationError(t *testing.T) {
	s, _, _ := newService(&fakeRunner{})
	_, err := s.Stream(context.Background(), types.ResearchRequest{Query: "q", CallbackURL: "ftp://hooks.example.com"})
	assert.ErrorIs(t, err, callback.ErrInvalidURL)
}

func TestStartBackground(t *testing.T) {
	runner := &fakeRunner{}
	s, store, poster := newService(runner)

	acc, err := s.StartBackground(context.Background(), types.ResearchRequest{
		Query:       "q",
		Mode:        types.ModeBackground,
		Depth:       "quick",
		CallbackURL: "https://HOOKS.example.com/done",
	})
	require.NoError(t, err)
	assert.Equal(t, Accepted{
		Status:  "accepted",
		TaskID:  "bg0000000001",
		Message: "Research started. Results will be sent to callback URL.",
	}, acc)
	s.Wait()

	res, err := store.Get(context.Background(), "bg0000000001")
	require.NoError(t, err)
	assert.Equal(t, "bg0000000001", res.TaskID)
	_, err = store.Get(context.Background(), "engine00id00")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.Len(t, poster.payloads, 1)
	assert.Equal(t, "/research/bg0000000001", poster.payloads[0].ResultURL)
	assert.Equal(t, []research.Params{{ReportType: types.ReportResearch, Depth: 1, Breadth: 2}}, runner.params)
}

func TestStartBackground_RequiresCallback(t *testing.T) {
	s, _, _ := newService(&fakeRunner{})
	_, err := s.StartBackground(context.Background(), types.ResearchRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrCallbackRequired)
}

func TestStartBackground_FailureCachesNothing(t *testing.T) {
	s, store, poster := newService(&fakeRunner{err: errors.New("boom")})
	_, err := s.StartBackground(context.Background(), types.ResearchRequest{Query: "q", CallbackURL: "https://hooks.example.com/cb"})
	require.NoError(t, err)
	s.Wait()

	_, err = store.Get(context.Background(), "bg0000000001")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.Empty(t, poster.payloads)
}

func TestCacheFailuresAreNotFatal(t *testing.T) {
	s, _, poster := newService(&fakeRunner{})
	s.Cache = failingCache{}

	ch, err := s.Stream(context.Background(), types.ResearchRequest{Query: "q", CallbackURL: "https://hooks.example.com/cb"})
	require.NoError(t, err)
	assert.Contains(t, drain(ch), events.Done)
	s.Wait()
	assert.Len(t, poster.payloads, 1)

	_, err = s.Get(context.Background(), "engine00id00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet(t *testing.T) {
	s, store, _ := newService(&fakeRunner{})
	require.NoError(t, store.Set(context.Background(), "abc", types.ResearchResult{TaskID: "abc"}, time.Minute))

	res, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.TaskID)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
