// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the research service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/service"
	"github.com/pdiddy/research-service/pkg/types"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Researcher is the service surface the HTTP layer drives.
type Researcher interface {
	Stream(ctx context.Context, req types.ResearchRequest) (<-chan events.Event, error)
	StartBackground(ctx context.Context, req types.ResearchRequest) (service.Accepted, error)
	Get(ctx context.Context, taskID string) (types.ResearchResult, error)
}

// Options configures New.
type Options struct {
	// APIKey is compared against X-API-Key on research routes.
	APIKey string
	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler
	Logger  *zap.Logger
}

// Server wires routes to a Researcher.
type Server struct {
	echo   *echo.Echo
	svc    Researcher
	logger *zap.Logger
}

// New builds the echo instance and registers every route.
func New(svc Researcher, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{echo: e, svc: svc, logger: logger}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	api := e.Group("", requireAPIKey(opts.APIKey))
	api.POST("/research", s.createResearch)
	api.GET("/research/:task_id", s.getResearch)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	<-errCh
	return nil
}

// errorHandler renders every error as {"detail": message}.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "Internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
		}
		req := c.Request()
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.Int("status", code),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Error(err))
		} else {
			logger.Debug("request rejected",
				zap.Int("status", code),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("detail", msg))
		}
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"detail": msg})
		}
	}
}
