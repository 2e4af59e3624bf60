package letta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/oculairmedia/context-gateway/internal/httpx"
	"github.com/oculairmedia/context-gateway/internal/memctx"
)

// FlexibleID accepts a string, a number, or a list (first element
// wins) where the API occasionally returns non-string block IDs.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(fmt.Sprintf("%.0f", n))
		return nil
	}
	var list []FlexibleID
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			*f = list[0]
		} else {
			*f = ""
		}
		return nil
	}
	return fmt.Errorf("letta: unsupported id shape: %s", string(data))
}

// Block is a core-memory block.
type Block struct {
	ID       FlexibleID     `json:"id"`
	Label    string         `json:"label"`
	Value    string         `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// blockList accepts both a bare JSON array and a {"blocks": [...]}
// wrapper, which vary between endpoints and platform versions.
type blockList []Block

func (b *blockList) UnmarshalJSON(data []byte) error {
	var bare []Block
	if err := json.Unmarshal(data, &bare); err == nil {
		*b = bare
		return nil
	}
	var wrapped struct {
		Blocks []Block `json:"blocks"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*b = wrapped.Blocks
	return nil
}

// FindBlock locates a block by label: first among the agent's attached
// core-memory blocks, then among global blocks. The bool reports
// whether the block is attached to the agent. Lookup failures collapse
// to (nil, false) so a transient platform error degrades to the
// create path instead of failing the pipeline.
func (c *Client) FindBlock(ctx context.Context, agentID, label string) (*Block, bool) {
	if agentID == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var attached blockList
	err := c.do(ctx, http.MethodGet, c.base+"/agents/"+agentID+"/core-memory/blocks", agentID, nil, &attached)
	if err != nil {
		slog.Warn("block lookup failed", "agent_id", agentID, "label", label, "error", err)
		return nil, false
	}
	for i := range attached {
		if attached[i].Label == label {
			return &attached[i], true
		}
	}

	q := url.Values{"label": {label}, "templates_only": {"false"}}
	var global blockList
	err = c.do(ctx, http.MethodGet, c.base+"/blocks?"+q.Encode(), "", nil, &global)
	if err != nil {
		slog.Warn("global block lookup failed", "label", label, "error", err)
		return nil, false
	}
	if len(global) > 0 {
		return &global[0], false
	}
	return nil, false
}

// UpdateBlock replaces a block's value and metadata.
func (c *Client) UpdateBlock(ctx context.Context, blockID, agentID, value string, metadata map[string]any) (*Block, error) {
	body := map[string]any{
		"value":    value,
		"metadata": metadata,
	}
	var updated Block
	if err := c.do(ctx, http.MethodPatch, c.base+"/blocks/"+blockID, agentID, body, &updated); err != nil {
		return nil, fmt.Errorf("update block %s: %w", blockID, err)
	}
	return &updated, nil
}

// AttachBlock attaches a block to the agent's core memory. A 409 from
// the platform means already attached and counts as success.
func (c *Client) AttachBlock(ctx context.Context, agentID, blockID string) bool {
	if blockID == "" {
		slog.Warn("attach skipped: empty block id", "agent_id", agentID)
		return false
	}
	url := c.base + "/agents/" + agentID + "/core-memory/blocks/attach/" + blockID
	// Empty JSON body keeps intermediate proxies happy.
	err := c.do(ctx, http.MethodPatch, url, agentID, map[string]any{}, nil)
	if err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusConflict {
			return true
		}
		slog.Warn("attach failed", "agent_id", agentID, "block_id", blockID, "error", err)
		return false
	}
	return true
}

// CreateBlock creates a new global block and attaches it to the agent
// when agentID is set.
func (c *Client) CreateBlock(ctx context.Context, agentID string, w BlockWrite) (*Block, error) {
	body := map[string]any{
		"label":    w.Label,
		"value":    w.Value,
		"metadata": w.Metadata,
	}
	var created Block
	if err := c.do(ctx, http.MethodPost, c.base+"/blocks", agentID, body, &created); err != nil {
		return nil, fmt.Errorf("create block %q: %w", w.Label, err)
	}
	if agentID != "" && created.ID != "" {
		c.AttachBlock(ctx, agentID, string(created.ID))
	}
	return &created, nil
}

// BlockWrite is one requested write to a labeled block.
type BlockWrite struct {
	Label    string
	Value    string
	Metadata map[string]any

	// Snapshot replaces the stored value outright instead of running
	// the cumulative append.
	Snapshot bool
}

// CreateOrUpdateBlock reconciles a block write against the platform:
// find by label, attach if detached, then either append cumulatively
// or replace (Snapshot). Falls back to create-and-attach when no block
// exists.
func (c *Client) CreateOrUpdateBlock(ctx context.Context, agentID string, w BlockWrite) (*Block, error) {
	if agentID != "" {
		existing, attached := c.FindBlock(ctx, agentID, w.Label)
		if existing != nil {
			if !attached {
				c.AttachBlock(ctx, agentID, string(existing.ID))
			}
			value := w.Value
			if !w.Snapshot {
				value = memctx.Append(existing.Value, w.Value, time.Now())
			}
			return c.UpdateBlock(ctx, string(existing.ID), agentID, value, w.Metadata)
		}
	}
	return c.CreateBlock(ctx, agentID, w)
}

// WriteToolInventory replaces the available_tools block with a fresh
// snapshot.
func (c *Client) WriteToolInventory(ctx context.Context, agentID, content string) (*Block, error) {
	if agentID == "" || content == "" {
		return nil, fmt.Errorf("tool inventory write needs agent id and content")
	}
	return c.CreateOrUpdateBlock(ctx, agentID, BlockWrite{
		Label:    "available_tools",
		Value:    content,
		Metadata: map[string]any{"source": "tool_inventory", "type": "snapshot"},
		Snapshot: true,
	})
}
