package memctx

import (
	"regexp"
	"strings"
)

const (
	arxivMarker    = "**Recent Research Papers (arXiv)**"
	graphitiMarker = "Relevant Entities from Knowledge Graph:"
	arxivQueryLead = "papers relevant to:"
)

var entryTimestampRe = regexp.MustCompile(`--- CONTEXT ENTRY \(([^)]+)\) ---`)

// Similar reports whether two pieces of content are near-duplicates,
// with overrides for arXiv and knowledge-graph renderings so that
// results for a different query are never collapsed into one entry.
func Similar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	// A byte-for-byte repeat is always a duplicate; the overrides below
	// only arbitrate contents that merely overlap.
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}

	if strings.Contains(a, arxivMarker) && strings.Contains(b, arxivMarker) {
		qa, qb := extractArxivQuery(a), extractArxivQuery(b)
		if qa != "" && qb != "" && qa != qb {
			return false
		}
	}

	if strings.Contains(a, graphitiMarker) && strings.Contains(b, graphitiMarker) {
		ta := latestEntryTimestamp(a)
		tb := latestEntryTimestamp(b)
		switch {
		case ta != "" && tb != "" && ta != tb:
			// Different search moments, keep both.
			return false
		case ta == "" && tb == "":
			// Two separate base renderings with no entry history.
			return false
		}
	}

	return roughlyEqual(a, b)
}

// roughlyEqual is the generic check: exact match after normalization,
// containment when lengths diverge past 80%, otherwise character-set
// overlap above 0.9.
func roughlyEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ac := strings.ToLower(strings.TrimSpace(a))
	bc := strings.ToLower(strings.TrimSpace(b))
	if ac == bc {
		return true
	}

	shorter, longer := len(ac), len(bc)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if shorter == 0 || longer == 0 {
		return false
	}
	if float64(shorter)/float64(longer) < 0.8 {
		return strings.Contains(ac, bc) || strings.Contains(bc, ac)
	}

	seen := make(map[rune]uint8)
	for _, r := range ac {
		seen[r] |= 1
	}
	for _, r := range bc {
		seen[r] |= 2
	}
	common, total := 0, 0
	for _, m := range seen {
		total++
		if m == 3 {
			common++
		}
	}
	if total == 0 {
		return false
	}
	return float64(common)/float64(total) > 0.9
}

func extractArxivQuery(s string) string {
	for _, line := range strings.Split(s, "\n") {
		idx := strings.Index(line, arxivQueryLead)
		if idx < 0 {
			continue
		}
		q := strings.TrimSpace(line[idx+len(arxivQueryLead):])
		return strings.TrimSpace(strings.TrimRight(q, "*"))
	}
	return ""
}

func latestEntryTimestamp(s string) string {
	ms := entryTimestampRe.FindAllStringSubmatch(s, -1)
	if len(ms) == 0 {
		return ""
	}
	return ms[len(ms)-1][1]
}
