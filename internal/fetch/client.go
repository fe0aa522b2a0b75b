// Package fetch retrieves documents from the VOE site through retry,
// backoff and Cloudflare-challenge fallback.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"voe-monitor-backend/config"
	"voe-monitor-backend/internal/flaresolver"
)

// ErrSourceUnavailable is returned once retries are exhausted or the site is
// otherwise unreachable. Callers skip the current cycle and keep their state.
var ErrSourceUnavailable = errors.New("fetch: source unavailable")

// ChallengeSolver abstracts the FlareSolverr client for testing.
type ChallengeSolver interface {
	Solve(ctx context.Context, targetURL string) (flaresolver.Credentials, error)
	Proxy(ctx context.Context, targetURL string, params, form url.Values, method string) ([]byte, error)
}

// Client fetches JSON documents from the VOE site. Outbound concurrency is
// capped by a weighted semaphore shared by all callers, so the total load on
// the site and on FlareSolverr stays fixed regardless of subscriber count.
type Client struct {
	cfg    *config.FetcherConfig
	mode   string
	solver ChallengeSolver
	client *http.Client
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu    sync.Mutex
	creds flaresolver.Credentials
}

// NewClient creates a fetcher. mode is the FlareSolverr operating mode,
// "direct" or "proxy".
func NewClient(cfg *config.FetcherConfig, mode string, solver ChallengeSolver, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		mode:   mode,
		solver: solver,
		client: &http.Client{Timeout: cfg.Timeout},
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger.Named("fetch"),
		creds:  flaresolver.Credentials{UserAgent: cfg.UserAgent},
	}
}

func (c *Client) credentials() flaresolver.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *Client) setCredentials(creds flaresolver.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if creds.Cookie != "" {
		c.creds.Cookie = creds.Cookie
	}
	if creds.UserAgent != "" {
		c.creds.UserAgent = creds.UserAgent
	}
}

// Fetch requests path relative to the configured base URL and returns the
// response payload, which the VOE endpoints serve as JSON.
func (c *Client) Fetch(ctx context.Context, path string, params, form url.Values, method string) (json.RawMessage, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if c.mode == "proxy" {
		body, err := c.solver.Proxy(ctx, c.cfg.BaseURL+path, params, form, method)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return json.RawMessage(body), nil
	}

	return c.fetchDirect(ctx, path, params, form, method)
}

// fetchDirect runs the retry state machine: a bounded attempt counter for
// retryable statuses and network errors, plus at most one credential refresh
// through FlareSolverr when the site answers 403.
func (c *Client) fetchDirect(ctx context.Context, path string, params, form url.Values, method string) (json.RawMessage, error) {
	attempt := 0
	challengeSolved := false

	for {
		res, err := c.attempt(ctx, path, params, form, method)

		var retryReason string
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			retryReason = fmt.Sprintf("network (%v)", err)

		case res.status == http.StatusForbidden && !challengeSolved:
			c.logger.Info("challenge detected, refreshing credentials via FlareSolverr",
				zap.String("path", path))
			creds, solveErr := c.solver.Solve(ctx, c.cfg.BaseURL+path)
			if solveErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, solveErr)
			}
			c.setCredentials(creds)
			challengeSolved = true
			continue // one retry with fresh credentials, not counted against backoff

		case res.status == http.StatusOK:
			return res.body, nil

		case c.retryable(res.status):
			retryReason = fmt.Sprintf("HTTP %d", res.status)

		default:
			return nil, fmt.Errorf("%w: unexpected status %d for %s", ErrSourceUnavailable, res.status, path)
		}

		attempt++
		if attempt > c.cfg.MaxRetries {
			c.logger.Error("fetch failed after retries",
				zap.String("path", path),
				zap.Int("attempts", attempt),
				zap.String("reason", retryReason))
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrSourceUnavailable, retryReason, attempt)
		}

		delay := c.cfg.BaseDelay * (1 << (attempt - 1))
		c.logger.Warn("retrying fetch",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Int("max", c.cfg.MaxRetries),
			zap.String("reason", retryReason),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

type attemptResult struct {
	status int
	body   []byte
}

func (c *Client) attempt(ctx context.Context, path string, params, form url.Values, method string) (attemptResult, error) {
	target := c.cfg.BaseURL + path
	if len(params) > 0 {
		target = target + "?" + params.Encode()
	}

	var body io.Reader
	if len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return attemptResult{}, err
	}
	if len(form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	creds := c.credentials()
	if creds.UserAgent != "" {
		req.Header.Set("User-Agent", creds.UserAgent)
	}
	if creds.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: "cf_clearance", Value: creds.Cookie})
	}

	res, err := c.client.Do(req)
	if err != nil {
		return attemptResult{}, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return attemptResult{}, err
	}
	return attemptResult{status: res.StatusCode, body: data}, nil
}

func (c *Client) retryable(status int) bool {
	for _, s := range c.cfg.RetryStatuses {
		if status == s {
			return true
		}
	}
	return false
}
