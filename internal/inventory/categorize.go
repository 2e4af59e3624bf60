// Package inventory tracks tool attachments per agent and renders the
// available_tools memory-block snapshot.
package inventory

import (
	"strings"

	"github.com/oculairmedia/context-gateway/internal/letta"
)

// categoryByServer maps MCP server names to display categories.
var categoryByServer = map[string]string{
	"Searxng":           "Web Search",
	"bookstack":         "Knowledge & Docs",
	"ghost":             "Content Publishing",
	"postiz":            "Social Media",
	"huly":              "Project Management",
	"vibekanban":        "Project Management",
	"vibekanban_system": "Project Management",
	"filesystem":        "Filesystem",
	"penpot":            "Design",
	"photoprism":        "Media",
	"graphiti":          "Knowledge Graph",
	"lettachat":         "Communication",
	"matrix":            "Communication",
	"agent_registry":    "Agent Discovery",
	"fin":               "Finance",
	"komodo":            "DevOps",
	"claude-code-mcp":   "Code Execution",
	"opencode":          "Code Execution",
	"Letta_code":        "Code Execution",
	"payloadcms":        "CMS",
	"resume":            "Personal Data",
	"context7":          "Documentation",
	"letta":             "Agent Management",
	"lettatoolsselector": "Tool Management",
}

// coreToolNames are the built-in tools every agent carries.
var coreToolNames = map[string]struct{}{
	"send_message":             {},
	"conversation_search":      {},
	"conversation_search_date": {},
	"archival_memory_insert":   {},
	"archival_memory_search":   {},
	"core_memory_append":       {},
	"core_memory_replace":      {},
}

// Categorize maps a tool to its display category. Core tools by name,
// MCP tools by server, everything else lands in Other.
func Categorize(t letta.Tool) string {
	if _, ok := coreToolNames[strings.ToLower(t.Name)]; ok {
		return "Core"
	}
	if server := t.MCPServer(); server != "" {
		if cat, ok := categoryByServer[server]; ok {
			return cat
		}
		// Tag-derived names arrive lowercased.
		for name, cat := range categoryByServer {
			if strings.EqualFold(name, server) {
				return cat
			}
		}
	}
	return "Other"
}

func categorizeAll(tools []letta.Tool) map[string][]letta.Tool {
	out := make(map[string][]letta.Tool)
	for _, t := range tools {
		cat := Categorize(t)
		out[cat] = append(out[cat], t)
	}
	return out
}
