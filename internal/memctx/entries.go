// Package memctx implements the cumulative-context format used for
// memory block values: timestamped entries joined by a separator line,
// with dedup on append and oldest-first truncation under a hard cap.
package memctx

import (
	"regexp"
	"strings"
	"time"
)

// MaxSnippetLength keeps block values under the platform's 5000-char API cap.
const MaxSnippetLength = 4800

const (
	truncationNotice = "--- OLDER ENTRIES TRUNCATED ---\n\n"
	contentTruncated = "\n\n[CONTENT TRUNCATED]"

	// LegacyTimestamp marks content that predates the entry format.
	LegacyTimestamp = "Legacy"
)

var separatorRe = regexp.MustCompile(`\n\n--- CONTEXT ENTRY \(([^)]+)\) ---\n\n`)

// Entry is one timestamped segment of a cumulative block value.
type Entry struct {
	Timestamp string
	Content   string
}

// Separator returns the entry separator for the given instant.
func Separator(now time.Time) string {
	return "\n\n--- CONTEXT ENTRY (" + now.UTC().Format("2006-01-02 15:04:05") + " UTC) ---\n\n"
}

// ParseEntries splits a block value into its entries. Text before the
// first separator becomes a single entry stamped LegacyTimestamp.
// Entries whose content is blank after trimming are dropped.
func ParseEntries(s string) []Entry {
	locs := separatorRe.FindAllStringSubmatchIndex(s, -1)

	var entries []Entry
	head := s
	if len(locs) > 0 {
		head = s[:locs[0][0]]
	}
	if t := strings.TrimSpace(head); t != "" {
		entries = append(entries, Entry{Timestamp: LegacyTimestamp, Content: t})
	}
	for i, loc := range locs {
		ts := s[loc[2]:loc[3]]
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimSpace(s[loc[1]:end])
		if content != "" {
			entries = append(entries, Entry{Timestamp: ts, Content: content})
		}
	}
	return entries
}

func formatEntry(e Entry) string {
	if e.Timestamp == LegacyTimestamp {
		return e.Content
	}
	return "\n\n--- CONTEXT ENTRY (" + e.Timestamp + ") ---\n\n" + e.Content
}
