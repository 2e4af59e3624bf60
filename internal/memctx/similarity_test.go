package memctx

import (
	"strings"
	"testing"
)

func TestRoughlyEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"both empty", "", "", false},
		{"one empty", "content", "", false},
		{"exact", "Hello World", "Hello World", true},
		{"case and space insensitive", "  Hello World ", "hello world", true},
		{"containment when much shorter", "alpha beta", "alpha beta gamma delta epsilon zeta", true},
		{"short not contained", "zzzz", "alpha beta gamma delta epsilon", false},
		{"similar length same charset", "abcdefgh", "hgfedcba", true},
		{"similar length different charset", "abcdefgh", "ijklmnop", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := roughlyEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("roughlyEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSimilarArxivQueryOverride(t *testing.T) {
	paper := "1. **Some Paper Title**\n   Authors: A, B\n   Summary: shared summary text\n"
	a := "**Recent Research Papers (arXiv)**\n*Found 3 recent papers relevant to: transformers*\n" + paper
	b := "**Recent Research Papers (arXiv)**\n*Found 3 recent papers relevant to: diffusion models*\n" + paper

	if Similar(a, b) {
		t.Error("different arXiv queries must never be treated as duplicates")
	}
	if !Similar(a, a) {
		t.Error("identical arXiv renderings should be duplicates")
	}
}

func TestSimilarGraphitiTimestampOverride(t *testing.T) {
	body := "Relevant Entities from Knowledge Graph:\n\nNode: Redis\nSummary: cache\n"
	older := body + "\n\n--- CONTEXT ENTRY (2025-01-01 10:00:00 UTC) ---\n\n" + body
	newer := body + "\n\n--- CONTEXT ENTRY (2025-01-02 10:00:00 UTC) ---\n\n" + body

	if Similar(older, newer) {
		t.Error("graph content with different latest timestamps must not dedup")
	}
	// No timestamps on either side: distinct base renderings.
	if Similar(body, body+" extra") {
		t.Error("graph base contexts without timestamps must not dedup")
	}
	// Except an exact repeat, which is always a duplicate.
	if !Similar(body, body) {
		t.Error("identical graph renderings should be duplicates")
	}
}

func TestSimilarContainmentThreshold(t *testing.T) {
	long := strings.Repeat("the quick brown fox ", 20)
	short := long[:len(long)/2]
	if !Similar(short, long) {
		t.Error("contained prefix at <80%% relative length should dedup")
	}
}
