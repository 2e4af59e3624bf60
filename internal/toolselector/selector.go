// Package toolselector calls the external tool-selector service, which
// ranks and attaches tools to an agent based on the prompt.
package toolselector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

const selectorTimeout = 15 * time.Second

// AgentToolLister resolves the current tool set of an agent. The
// platform client satisfies this; tests swap in a stub.
type AgentToolLister interface {
	AgentToolIDs(ctx context.Context, agentID string) ([]string, error)
}

// Client talks to the tool-selector service.
type Client struct {
	cfg   config.SelectorConfig
	tools AgentToolLister
	http  *http.Client
	retry httpx.RetryConfig
}

func NewClient(cfg config.SelectorConfig, tools AgentToolLister) *Client {
	return &Client{
		cfg:   cfg,
		tools: tools,
		http:  &http.Client{Timeout: selectorTimeout},
		retry: httpx.DefaultRetryConfig(),
	}
}

type attachRequest struct {
	Query            string   `json:"query"`
	AgentID          string   `json:"agent_id"`
	KeepTools        []string `json:"keep_tools"`
	Limit            int      `json:"limit"`
	MinScore         float64  `json:"min_score"`
	RequestHeartbeat bool     `json:"request_heartbeat"`
	ReturnStructured bool     `json:"return_structured"`
}

// AttachedTool is one successful attachment in the selector response.
type AttachedTool struct {
	Name       string  `json:"name"`
	ToolID     string  `json:"tool_id"`
	MatchScore float64 `json:"match_score"`
}

// AttachResult is the structured selector response.
type AttachResult struct {
	Success bool `json:"success"`
	Details struct {
		SuccessfulAttachments []AttachedTool `json:"successful_attachments"`
		DetachedTools         []string       `json:"detached_tools"`
		PreservedTools        []string       `json:"preserved_tools"`
	} `json:"details"`
}

// Attach asks the selector to attach the best tool matches for the
// query. keepTools may contain "*", which expands to the agent's
// current tool set so nothing already attached gets dropped.
func (c *Client) Attach(ctx context.Context, query, agentID string, keepTools []string) (*AttachResult, error) {
	keep, err := c.expandKeepTools(ctx, agentID, keepTools)
	if err != nil {
		return nil, err
	}

	reqBody := attachRequest{
		Query:            query,
		AgentID:          agentID,
		KeepTools:        keep,
		Limit:            c.cfg.Limit,
		MinScore:         c.cfg.MinScore,
		RequestHeartbeat: false,
		ReturnStructured: true,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("selector: marshal request: %w", err)
	}

	attachURL := strings.TrimRight(c.cfg.URL, "/") + "/api/v1/tools/attach"

	return httpx.RetryDo(ctx, c.retry, func() (*AttachResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, attachURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("selector: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("selector: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &httpx.HTTPError{
				Status:     resp.StatusCode,
				Body:       fmt.Sprintf("selector: %s", string(respBody)),
				RetryAfter: httpx.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		var out AttachResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("selector: decode response: %w", err)
		}
		return &out, nil
	})
}

// expandKeepTools replaces a "*" entry with the agent's current tool
// IDs, preserving order and dropping duplicates.
func (c *Client) expandKeepTools(ctx context.Context, agentID string, keepTools []string) ([]string, error) {
	expanded := make([]string, 0, len(keepTools))
	for _, id := range keepTools {
		if id != "*" {
			expanded = append(expanded, id)
			continue
		}
		current, err := c.tools.AgentToolIDs(ctx, agentID)
		if err != nil {
			return nil, fmt.Errorf("selector: expand keep_tools: %w", err)
		}
		expanded = append(expanded, current...)
	}

	seen := make(map[string]struct{}, len(expanded))
	deduped := expanded[:0]
	for _, id := range expanded {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped, nil
}
