// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package service turns research requests into engine runs, delivering the
// outcome as an event stream, a cached result, and an optional callback.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/cache"
	"github.com/pdiddy/research-service/internal/callback"
	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/metrics"
	"github.com/pdiddy/research-service/internal/research"
	"github.com/pdiddy/research-service/pkg/types"
)

// Request bounds for explicit depth and breadth.
const (
	MaxDepth   = 5
	MaxBreadth = 10
)

var (
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCallbackRequired is returned for background requests without a
	// callback URL.
	ErrCallbackRequired = errors.New("callback_url is required for background mode")
	// ErrNotFound is returned by Get for unknown or expired task ids.
	ErrNotFound = errors.New("result not found or expired")
)

// Runner executes one research run.
type Runner interface {
	Run(ctx context.Context, query string, p research.Params, sink events.Sink) (types.ResearchResult, error)
}

// Poster delivers a completion notice.
type Poster interface {
	Post(ctx context.Context, url string, payload types.CallbackPayload) callback.Outcome
}

// Service runs research on behalf of transport callers. Runs are detached
// from the caller's context and always finish.
type Service struct {
	Engine       Runner
	Tiers        *research.TierSet
	Cache        cache.Store
	Callbacks    Poster
	AllowedHosts []string
	TTL          time.Duration
	Metrics      *metrics.Metrics
	Logger       *zap.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string

	wg sync.WaitGroup
}

// Accepted is the response to a background request.
type Accepted struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// Validate checks req and resolves its pipeline parameters.
func (s *Service) Validate(req types.ResearchRequest) (research.Params, error) {
	if strings.TrimSpace(req.Query) == "" {
		return research.Params{}, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	switch req.Mode {
	case "", types.ModeStream, types.ModeBackground:
	default:
		return research.Params{}, fmt.Errorf("%w: mode must be stream or background", ErrInvalidRequest)
	}
	if d := req.ResearchDepth; d != nil && (*d < 1 || *d > MaxDepth) {
		return research.Params{}, fmt.Errorf("%w: research_depth must be between 1 and %d", ErrInvalidRequest, MaxDepth)
	}
	if b := req.ResearchBreadth; b != nil && (*b < 1 || *b > MaxBreadth) {
		return research.Params{}, fmt.Errorf("%w: research_breadth must be between 1 and %d", ErrInvalidRequest, MaxBreadth)
	}
	if req.ReportType != "" && !research.ValidReportType(types.ReportType(req.ReportType)) {
		return research.Params{}, fmt.Errorf("%w: unknown report_type %q", ErrInvalidRequest, req.ReportType)
	}
	if req.CallbackURL != "" {
		if err := callback.ValidateURL(req.CallbackURL, s.AllowedHosts); err != nil {
			return research.Params{}, err
		}
	}
	if req.Mode == types.ModeBackground && req.CallbackURL == "" {
		return research.Params{}, ErrCallbackRequired
	}

	p, err := s.tiers().ResolveParams(req.Depth, req.ResearchDepth, req.ResearchBreadth, req.ReportType)
	if err != nil {
		return research.Params{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return p, nil
}

// Stream starts a run and returns its events. The channel closes after
// done, or after an error event when the run fails. Callers must drain it.
func (s *Service) Stream(ctx context.Context, req types.ResearchRequest) (<-chan events.Event, error) {
	p, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	s.logger().Info("streaming research started",
		zap.String("query", truncate(req.Query, 100)),
		zap.String("report_type", string(p.ReportType)),
		zap.Int("depth", p.Depth),
		zap.Int("breadth", p.Breadth))

	q := events.NewQueue()
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer q.Close()

		finish := s.Metrics.RunStarted(string(types.ModeStream))
		res, err := s.Engine.Run(runCtx, req.Query, p, q)
		if err != nil {
			finish(metrics.OutcomeFailed)
			s.logger().Error("streaming research failed",
				zap.String("query", truncate(req.Query, 100)), zap.Error(err))
			q.Emit(events.Error, events.ErrorData{Message: "Research failed"})
			return
		}
		finish(metrics.OutcomeCompleted)
		s.complete(runCtx, res, req.CallbackURL)
		s.logger().Info("streaming research completed", zap.String("task_id", res.TaskID))
	}()
	return q.C(), nil
}

// StartBackground validates req, starts a detached run, and returns the
// task id the result will be cached under.
func (s *Service) StartBackground(ctx context.Context, req types.ResearchRequest) (Accepted, error) {
	req.Mode = types.ModeBackground
	p, err := s.Validate(req)
	if err != nil {
		return Accepted{}, err
	}

	taskID := s.newID()
	s.logger().Info("background research started",
		zap.String("task_id", taskID),
		zap.String("query", truncate(req.Query, 100)),
		zap.String("report_type", string(p.ReportType)),
		zap.Int("depth", p.Depth),
		zap.Int("breadth", p.Breadth))

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		finish := s.Metrics.RunStarted(string(types.ModeBackground))
		res, err := s.Engine.Run(runCtx, req.Query, p, nil)
		if err != nil {
			finish(metrics.OutcomeFailed)
			s.logger().Error("background research failed",
				zap.String("task_id", taskID),
				zap.String("query", truncate(req.Query, 100)),
				zap.Error(err))
			return
		}
		finish(metrics.OutcomeCompleted)
		res.TaskID = taskID
		s.complete(runCtx, res, req.CallbackURL)
	}()

	return Accepted{
		Status:  "accepted",
		TaskID:  taskID,
		Message: "Research started. Results will be sent to callback URL.",
	}, nil
}

// Get returns the cached result for taskID. Cache failures read as a miss.
func (s *Service) Get(ctx context.Context, taskID string) (types.ResearchResult, error) {
	res, err := s.Cache.Get(ctx, taskID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		s.Metrics.CacheOp("get", "miss")
		return types.ResearchResult{}, ErrNotFound
	case err != nil:
		s.Metrics.CacheOp("get", "error")
		s.logger().Warn("cache get failed", zap.String("task_id", taskID), zap.Error(err))
		return types.ResearchResult{}, ErrNotFound
	}
	s.Metrics.CacheOp("get", "hit")
	return res, nil
}

// Wait blocks until every started run has finished.
func (s *Service) Wait() { s.wg.Wait() }

// complete caches res and posts the callback when one was supplied.
func (s *Service) complete(ctx context.Context, res types.ResearchResult, callbackURL string) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	expires := s.clock().UTC().Add(ttl)
	res.ExpiresAt = &expires

	if err := s.Cache.Set(ctx, res.TaskID, res, ttl); err != nil {
		s.Metrics.CacheOp("set", "error")
		s.logger().Warn("cache set failed", zap.String("task_id", res.TaskID), zap.Error(err))
	} else {
		s.Metrics.CacheOp("set", "ok")
	}

	if callbackURL == "" || s.Callbacks == nil {
		return
	}
	outcome := s.Callbacks.Post(ctx, callbackURL, types.CallbackPayload{
		TaskID:    res.TaskID,
		Status:    types.StatusCompleted,
		ResultURL: "/research/" + res.TaskID,
	})
	s.Metrics.Callback(string(outcome))
}

func (s *Service) tiers() *research.TierSet {
	if s.Tiers != nil {
		return s.Tiers
	}
	ts, _ := research.NewTierSet(research.DefaultTiers(), "")
	return ts
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return research.NewTaskID()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
