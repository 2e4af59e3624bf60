// Package letta is the REST client for the agent platform: memory
// blocks, agent lookups, and tool listings.
package letta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

const (
	lookupTimeout = 10 * time.Second
	toolsTimeout  = 15 * time.Second
)

// Client talks to the platform's versioned REST API.
type Client struct {
	base     string
	password string
	http     *http.Client
	retry    httpx.RetryConfig
}

// NewClient builds a client from config. The base URL is normalized
// to the /v1 API root.
func NewClient(cfg config.LettaConfig) *Client {
	return &Client{
		base:     cfg.APIBase(),
		password: cfg.Password,
		http:     &http.Client{Timeout: toolsTimeout},
		retry:    httpx.DefaultRetryConfig(),
	}
}

// headers returns the auth header set. agentID, when non-empty, is
// forwarded as the user_id header for agent-scoped endpoints.
func (c *Client) headers(agentID string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	if c.password != "" {
		h.Set("X-BARE-PASSWORD", "password "+c.password)
		h.Set("Authorization", "Bearer "+c.password)
	}
	if agentID != "" {
		h.Set("user_id", agentID)
	}
	return h
}

// do sends a request and decodes the JSON response into out (skipped
// when out is nil). Non-2xx responses come back as *httpx.HTTPError,
// with the body truncated so credentials and full payloads never leak
// into error chains.
func (c *Client) do(ctx context.Context, method, url string, agentID string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("letta: marshal request: %w", err)
		}
	}

	_, err := httpx.RetryDo(ctx, c.retry, func() (struct{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return struct{}{}, fmt.Errorf("letta: create request: %w", err)
		}
		req.Header = c.headers(agentID)

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("letta: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, &httpx.HTTPError{
				Status:     resp.StatusCode,
				Body:       fmt.Sprintf("letta: %s", string(respBody)),
				RetryAfter: httpx.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return struct{}{}, fmt.Errorf("letta: decode response: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}
