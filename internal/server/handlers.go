// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/callback"
	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/service"
	"github.com/pdiddy/research-service/pkg/types"
)

func (s *Server) createResearch(c echo.Context) error {
	var req types.ResearchRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Malformed request body")
	}

	if req.Mode == types.ModeBackground {
		acc, err := s.svc.StartBackground(c.Request().Context(), req)
		if err != nil {
			return requestError(err)
		}
		return c.JSON(http.StatusOK, acc)
	}

	ch, err := s.svc.Stream(c.Request().Context(), req)
	if err != nil {
		return requestError(err)
	}
	return s.writeSSE(c, ch)
}

func (s *Server) getResearch(c echo.Context) error {
	res, err := s.svc.Get(c.Request().Context(), c.Param("task_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Result not found or expired")
	}
	return c.JSON(http.StatusOK, res)
}

// requestError maps service validation failures to 422.
func requestError(err error) error {
	switch {
	case errors.Is(err, callback.ErrInvalidURL):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Invalid callback URL")
	case errors.Is(err, service.ErrCallbackRequired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return err
}

// writeSSE relays events as server-sent events, one frame per event. If the
// client goes away the rest of the channel is drained in the background so
// the run can finish.
func (s *Server) writeSSE(c echo.Context, ch <-chan events.Event) error {
	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		go drain(ch)
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	done := c.Request().Context().Done()
	for {
		select {
		case <-done:
			s.logger.Info("stream client disconnected; run continues")
			go drain(ch)
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeFrame(resp, ev); err != nil {
				s.logger.Warn("writing stream frame", zap.String("event", ev.Name), zap.Error(err))
				go drain(ch)
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}

func drain(ch <-chan events.Event) {
	for range ch {
	}
}
