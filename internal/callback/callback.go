// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package callback validates caller-supplied callback URLs and delivers
// completion notices to them.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/httputil"
	"github.com/pdiddy/research-service/pkg/types"
)

// ErrInvalidURL is returned by ValidateURL for a URL the service will not call.
var ErrInvalidURL = errors.New("invalid callback url")

// Delivery defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultTimeout    = 10 * time.Second
)

// ParseHosts splits a comma-separated allow-list, dropping blanks.
func ParseHosts(list string) []string {
	var out []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// ValidateURL checks raw against the delivery rules: http or https, no
// embedded credentials, a hostname, and that hostname on the allow-list.
// Host comparison ignores case. An empty allow-list rejects everything.
func ValidateURL(raw string, allowed []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials not allowed", ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), host) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q not allowed", ErrInvalidURL, host)
}

// Outcome labels a delivery attempt sequence.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Rejected  Outcome = "rejected"
	Failed    Outcome = "failed"
)

// Dispatcher posts payloads, retrying network failures with capped
// exponential backoff. Non-2xx responses are terminal.
type Dispatcher struct {
	Client     *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     *zap.Logger

	// OnOutcome, when set, observes every Post result.
	OnOutcome func(Outcome)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher builds a Dispatcher from cfg, filling unset knobs with the
// package defaults.
func NewDispatcher(cfg types.CallbackConfig, logger *zap.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		Client:     &http.Client{Timeout: timeout},
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Logger:     logger,
	}
	if d.MaxRetries < 0 {
		d.MaxRetries = 0
	}
	if d.BaseDelay <= 0 {
		d.BaseDelay = DefaultBaseDelay
	}
	if d.MaxDelay <= 0 {
		d.MaxDelay = DefaultMaxDelay
	}
	return d
}

// Post sends payload as JSON to target. It never returns an error; the
// outcome is logged and reported.
func (d *Dispatcher) Post(ctx context.Context, target string, payload types.CallbackPayload) Outcome {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("encoding callback payload", zap.Error(err))
		return d.report(Failed)
	}

	for attempt := 0; ; attempt++ {
		status, err := d.send(ctx, target, body)
		switch {
		case err == nil && status >= 200 && status < 300:
			logger.Info("callback delivered",
				zap.String("task_id", payload.TaskID),
				zap.String("url", target),
				zap.Int("attempts", attempt+1))
			return d.report(Delivered)
		case err == nil:
			logger.Warn("callback rejected",
				zap.String("task_id", payload.TaskID),
				zap.String("url", target),
				zap.Int("status", status))
			return d.report(Rejected)
		case !httputil.IsNetworkError(err) || attempt >= d.MaxRetries:
			logger.Warn("callback failed",
				zap.String("task_id", payload.TaskID),
				zap.String("url", target),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return d.report(Failed)
		}

		delay := httputil.Backoff(attempt, d.BaseDelay, d.MaxDelay)
		logger.Debug("callback retry",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := d.wait(ctx, delay); err != nil {
			return d.report(Failed)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, target string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	if d.sleep != nil {
		return d.sleep(ctx, delay)
	}
	return httputil.Sleep(ctx, delay)
}

func (d *Dispatcher) report(o Outcome) Outcome {
	if d.OnOutcome != nil {
		d.OnOutcome(o)
	}
	return o
}
