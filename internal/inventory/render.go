package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oculairmedia/context-gateway/internal/letta"
)

const (
	// maxInventoryChars keeps the snapshot comfortably inside the
	// block value limit.
	maxInventoryChars = 4500
	maxPerCategory    = 5
)

// priorityCategories render first, in this order; the rest follow
// alphabetically.
var priorityCategories = []string{
	"Core", "Web Search", "Communication", "Knowledge Graph",
	"Project Management", "Code Execution",
}

// Render builds the available_tools snapshot: recent attachments up
// top, then tools grouped by category, capped per category and
// overall.
func Render(tools []letta.Tool, recent []Attachment, now time.Time) string {
	if len(tools) == 0 {
		return "🛠️ Available Tools: None currently attached."
	}

	categorized := categorizeAll(tools)

	recentIDs := make(map[string]struct{}, len(recent))
	for _, a := range recent {
		recentIDs[a.ToolID] = struct{}{}
	}

	lines := []string{fmt.Sprintf("🛠️ Available Tools (%d total)\n", len(tools))}

	if len(recent) > 0 {
		lines = append(lines, "═══ Recently Attached ═══")
		for _, a := range recent {
			lines = append(lines, "• "+a.ToolName)
			lines = append(lines, fmt.Sprintf("  └─ [%s • score: %.0f%% • %s]",
				a.Reason, a.Score, a.Timestamp.UTC().Format("2006-01-02 15:04")))
		}
		lines = append(lines, "")
	}

	shown := make(map[string]struct{})
	appendCategory := func(category string) {
		catTools, ok := categorized[category]
		if !ok {
			return
		}
		lines = append(lines, "═══ "+category+" ═══")
		for i, t := range catTools {
			if i >= maxPerCategory {
				break
			}
			if _, dup := recentIDs[t.ID]; dup {
				continue
			}
			lines = append(lines, formatToolEntry(t))
		}
		lines = append(lines, "")
		shown[category] = struct{}{}
	}

	for _, category := range priorityCategories {
		appendCategory(category)
	}

	rest := make([]string, 0, len(categorized))
	for category := range categorized {
		if _, done := shown[category]; !done {
			rest = append(rest, category)
		}
	}
	sort.Strings(rest)
	for _, category := range rest {
		appendCategory(category)
	}

	lines = append(lines, "[Last updated: "+now.UTC().Format("2006-01-02 15:04:05")+" UTC]")

	text := strings.Join(lines, "\n")
	if len(text) > maxInventoryChars {
		cut := 4450
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n...\n[Content truncated]"
	}
	return text
}

func formatToolEntry(t letta.Tool) string {
	desc := t.Description
	if len(desc) > 80 {
		desc = desc[:77] + "..."
	}
	if desc != "" {
		return "• " + t.Name + " - " + desc
	}
	return "• " + t.Name
}
