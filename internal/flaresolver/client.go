// Package flaresolver talks to a FlareSolverr instance, a browser-automation
// proxy used to pass Cloudflare challenges on the VOE site.
package flaresolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"voe-monitor-backend/config"
)

// ErrChallengeSolve is returned when FlareSolverr reports a non-ok status.
// Callers treat it the same way as an unreachable source.
var ErrChallengeSolve = errors.New("flaresolverr: challenge solve failed")

// Credentials are the cookie/user-agent pair obtained from a solved
// challenge. Both must be applied together on subsequent direct requests.
type Credentials struct {
	Cookie    string
	UserAgent string
}

// Client is a FlareSolverr API client.
type Client struct {
	cfg    *config.FlareSolverConfig
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a FlareSolverr client.
func NewClient(cfg *config.FlareSolverConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("flaresolver"),
	}
}

type solverRequest struct {
	Cmd               string `json:"cmd"`
	URL               string `json:"url"`
	Session           string `json:"session,omitempty"`
	MaxTimeout        int    `json:"maxTimeout"`
	ReturnOnlyCookies bool   `json:"returnOnlyCookies,omitempty"`
	DisableMedia      bool   `json:"disableMedia,omitempty"`
	PostData          string `json:"postData,omitempty"`
}

type solverResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		URL     string `json:"url"`
		Status  int    `json:"status"`
		Cookies []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"cookies"`
		UserAgent string `json:"userAgent"`
		Response  string `json:"response"`
	} `json:"solution"`
}

// Solve asks FlareSolverr to pass the challenge on targetURL and returns the
// cf_clearance cookie and the user agent of the browser session that earned
// it.
func (c *Client) Solve(ctx context.Context, targetURL string) (Credentials, error) {
	res, err := c.call(ctx, solverRequest{
		Cmd:               "request.get",
		URL:               targetURL,
		MaxTimeout:        c.cfg.MaxTimeoutMS,
		ReturnOnlyCookies: true,
		DisableMedia:      true,
	})
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{UserAgent: res.Solution.UserAgent}
	for _, cookie := range res.Solution.Cookies {
		if cookie.Name == "cf_clearance" {
			creds.Cookie = cookie.Value
		}
	}
	if creds.Cookie == "" {
		c.logger.Warn("solver returned no cf_clearance cookie", zap.String("url", targetURL))
	}
	return creds, nil
}

// Proxy executes the whole request through the FlareSolverr browser session
// and returns the page body. Used in proxy operating mode, where the local
// fetcher never talks to the site directly.
func (c *Client) Proxy(ctx context.Context, targetURL string, params, form url.Values, method string) ([]byte, error) {
	if len(params) > 0 {
		targetURL = targetURL + "?" + params.Encode()
	}

	req := solverRequest{
		Cmd:        "request." + strings.ToLower(method),
		URL:        targetURL,
		Session:    c.cfg.Session,
		MaxTimeout: c.cfg.MaxTimeoutMS,
	}
	if !strings.EqualFold(method, http.MethodGet) && len(form) > 0 {
		req.PostData = form.Encode()
	}

	res, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return []byte(res.Solution.Response), nil
}

func (c *Client) call(ctx context.Context, payload solverRequest) (*solverResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal solver request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create solver request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeSolve, err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: solver returned status %d", ErrChallengeSolve, httpRes.StatusCode)
	}

	var res solverResponse
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrChallengeSolve, err)
	}

	if res.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q: %s", ErrChallengeSolve, res.Status, res.Message)
	}
	return &res, nil
}
