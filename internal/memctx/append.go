package memctx

import (
	"strings"
	"time"
)

// Append builds the next block value from the current one plus new
// content. Blank inputs pass the other side through unchanged; new
// content near-identical to the newest existing entry is dropped; the
// result is truncated to MaxSnippetLength with the new content always
// surviving, sliced as a last resort.
func Append(existing, incoming string, now time.Time) string {
	sep := Separator(now)

	if strings.TrimSpace(existing) == "" {
		return incoming
	}
	if strings.TrimSpace(incoming) == "" {
		return existing
	}

	if entries := ParseEntries(existing); len(entries) > 0 {
		if Similar(entries[len(entries)-1].Content, incoming) {
			return existing
		}
	}

	out := existing + sep + incoming
	if len(out) <= MaxSnippetLength {
		return out
	}

	out = TruncateOldest(out, MaxSnippetLength)

	// Truncation must never erase the content we just added.
	bareNotice := strings.TrimRight(truncationNotice, "\n")
	if strings.TrimSpace(out) == bareNotice {
		out = bareNotice + sep + incoming
		if len(out) > MaxSnippetLength {
			avail := MaxSnippetLength - len(bareNotice) - len(sep) - 100
			if avail > 500 {
				out = bareNotice + sep + headBytes(incoming, avail) + contentTruncated
			} else {
				out = incoming
			}
		}
	}
	return out
}
