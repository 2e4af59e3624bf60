package letta

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Agent is the subset of agent details the gateway needs.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	System string `json:"system"`
}

// Tool is a platform tool as returned by the tools endpoints. The
// metadata_ field carries MCP provenance on newer platform versions;
// older ones use mcp_server_name or an mcp:<server> tag.
type Tool struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Tags          []string       `json:"tags"`
	Metadata      map[string]any `json:"metadata_"`
	MCPServerName string         `json:"mcp_server_name"`
}

// MCPServer resolves the MCP server name from whichever field the
// platform populated. Empty for native tools.
func (t Tool) MCPServer() string {
	if md, ok := t.Metadata["mcp"].(map[string]any); ok {
		if name, ok := md["server_name"].(string); ok && name != "" {
			return name
		}
	}
	if t.MCPServerName != "" {
		return t.MCPServerName
	}
	for _, tag := range t.Tags {
		if rest, ok := strings.CutPrefix(tag, "mcp:"); ok && rest != "" {
			return rest
		}
	}
	return ""
}

// GetAgent fetches agent details.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var a Agent
	if err := c.do(ctx, http.MethodGet, c.base+"/agents/"+agentID, agentID, nil, &a); err != nil {
		return nil, fmt.Errorf("get agent %s: %w", agentID, err)
	}
	return &a, nil
}

// AgentTools lists the tools currently attached to an agent.
func (c *Client) AgentTools(ctx context.Context, agentID string) ([]Tool, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent tools: empty agent id")
	}
	ctx, cancel := context.WithTimeout(ctx, toolsTimeout)
	defer cancel()

	var tools []Tool
	if err := c.do(ctx, http.MethodGet, c.base+"/agents/"+agentID+"/tools", agentID, nil, &tools); err != nil {
		return nil, fmt.Errorf("agent tools %s: %w", agentID, err)
	}
	return tools, nil
}

// AgentToolIDs returns just the IDs of an agent's attached tools.
func (c *Client) AgentToolIDs(ctx context.Context, agentID string) ([]string, error) {
	tools, err := c.AgentTools(ctx, agentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tools))
	for _, t := range tools {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// FindToolsID resolves the tool ID of the find_tools tool: the agent's
// attached tools first (exact name, then a find+tool candidate), then
// the global tools list. Empty when nothing matches.
func (c *Client) FindToolsID(ctx context.Context, agentID string) string {
	if agentID != "" {
		if tools, err := c.AgentTools(ctx, agentID); err == nil {
			candidate := ""
			for _, t := range tools {
				name := strings.ToLower(t.Name)
				if name == "find_tools" {
					return t.ID
				}
				if strings.Contains(name, "find") && strings.Contains(name, "tool") {
					candidate = t.ID
				}
			}
			if candidate != "" {
				return candidate
			}
		}
	}

	lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	var tools []Tool
	if err := c.do(lctx, http.MethodGet, c.base+"/tools", "", nil, &tools); err != nil {
		return ""
	}
	for _, t := range tools {
		if strings.ToLower(t.Name) == "find_tools" {
			return t.ID
		}
	}
	return ""
}
