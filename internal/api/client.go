package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"dymgr/internal/dispatch"
)

// Dispatcher is the single egress point used by every service.
type Dispatcher interface {
	Do(ctx context.Context, req dispatch.Request, out any) error
}

// Client groups the endpoint services around one dispatcher.
type Client struct {
	Auth   *AuthService
	Videos *VideoService
	AI     *AIService
	Douyin *DouyinService

	d Dispatcher
}

// New constructs a Client issuing every call through d.
func New(d Dispatcher) *Client {
	return &Client{
		Auth:   &AuthService{d: d},
		Videos: &VideoService{d: d},
		AI:     &AIService{d: d},
		Douyin: &DouyinService{d: d},
		d:      d,
	}
}

// Health probes the backend liveness endpoint, which sits at the server
// origin rather than under the versioned prefix.
func (c *Client) Health(ctx context.Context, baseURL string) (*Health, error) {
	var out Health
	if err := c.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: originOf(baseURL) + "/health"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func originOf(baseURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(baseURL, "/")
	}
	return parsed.Scheme + "://" + parsed.Host
}
