package memctx

import (
	"strings"
	"unicode/utf8"
)

// TruncateOldest drops the oldest entries until the value fits max
// bytes, always keeping the newest entry (sliced if it alone exceeds
// the cap). The truncation notice is prepended only when older entries
// were actually dropped.
func TruncateOldest(s string, max int) string {
	if len(s) <= max {
		return s
	}
	entries := ParseEntries(s)
	if len(entries) == 0 {
		return tailBytes(s, max)
	}

	recent := entries[len(entries)-1]
	recentFormatted := formatEntry(recent)

	if len(recentFormatted)+len(truncationNotice) <= max {
		parts := []string{recentFormatted}
		cur := len(recentFormatted)
		dropped := false
		for i := len(entries) - 2; i >= 0; i-- {
			fe := formatEntry(entries[i])
			if cur+len(fe)+len(truncationNotice) > max {
				dropped = true
				break
			}
			parts = append([]string{fe}, parts...)
			cur += len(fe)
		}
		if dropped {
			parts = append([]string{strings.TrimRight(truncationNotice, "\n")}, parts...)
		}
		return strings.Join(parts, "")
	}

	// Newest entry alone blows the cap: slice its content, keeping a
	// buffer for the notice and marker.
	avail := max - len(truncationNotice) - 100
	if avail > 500 {
		cut := headBytes(recent.Content, avail) + contentTruncated
		if recent.Timestamp == LegacyTimestamp {
			return truncationNotice + cut
		}
		return truncationNotice + "\n\n--- CONTEXT ENTRY (" + recent.Timestamp + ") ---\n\n" + cut
	}
	return tailBytes(recentFormatted, max)
}

// headBytes slices to at most n bytes without splitting a rune.
func headBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// tailBytes keeps at most the last n bytes without splitting a rune.
func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
