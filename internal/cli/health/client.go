// Package health is a small client for the status API served by
// "pushstore start".
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marmos91/pushstore/pkg/service"
)

// Response is the liveness payload of GET /health.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Readiness is the payload of GET /health/ready.
type Readiness struct {
	Status string `json:"status"`
	Data   struct {
		Services int            `json:"services"`
		States   map[string]int `json:"states"`
		NotReady []string       `json:"not_ready,omitempty"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

type servicesResponse struct {
	Status string           `json:"status"`
	Data   []service.Status `json:"data"`
	Error  string           `json:"error,omitempty"`
}

// Client queries one pushstore status API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL, e.g. "http://localhost:9090".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Health fetches the liveness probe.
func (c *Client) Health(ctx context.Context) (*Response, error) {
	var resp Response
	if _, err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready fetches the readiness probe. A 503 is not an error: the returned
// Readiness carries the reason.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var resp Readiness
	if _, err := c.get(ctx, "/health/ready", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Services lists every registered service.
func (c *Client) Services(ctx context.Context) ([]service.Status, error) {
	var resp servicesResponse
	code, err := c.get(ctx, "/services", &resp)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("status API returned %d: %s", code, resp.Error)
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, into any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("status API unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return resp.StatusCode, fmt.Errorf("invalid response from %s (HTTP %d): %w", path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
