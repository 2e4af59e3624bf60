package memctx

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAppendBasics(t *testing.T) {
	cases := []struct {
		name     string
		existing string
		incoming string
		want     string
	}{
		{"empty existing", "", "fresh", "fresh"},
		{"blank existing", "   \n", "fresh", "fresh"},
		{"empty incoming", "kept", "", "kept"},
		{"blank incoming", "kept", "  \t", "kept"},
		{
			"normal append",
			"first",
			"second",
			"first" + Separator(testNow) + "second",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Append(tc.existing, tc.incoming, testNow); got != tc.want {
				t.Errorf("Append() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAppendDedupsNewestEntry(t *testing.T) {
	existing := "base" + Separator(testNow.Add(-time.Hour)) + "repeated content here"
	got := Append(existing, "repeated content here", testNow)
	if got != existing {
		t.Errorf("duplicate of newest entry should be a no-op, got %q", got)
	}

	// Same content as an OLDER entry must still append.
	existing2 := "repeated content here" + Separator(testNow.Add(-time.Hour)) + "something else entirely different 0123456789"
	got2 := Append(existing2, "repeated content here", testNow)
	if got2 == existing2 {
		t.Error("content matching only an older entry must still append")
	}
}

func TestAppendNeverExceedsCap(t *testing.T) {
	existing := ""
	chunk := strings.Repeat("x", 900)
	for i := 0; i < 12; i++ {
		// Vary each chunk so dedup does not kick in.
		entry := chunk + strings.Repeat(string(rune('a'+i)), 40)
		existing = Append(existing, entry, testNow.Add(time.Duration(i)*time.Minute))
		if len(existing) > MaxSnippetLength {
			t.Fatalf("iteration %d: value %d bytes exceeds cap %d", i, len(existing), MaxSnippetLength)
		}
	}
	if !strings.Contains(existing, "--- OLDER ENTRIES TRUNCATED ---") {
		t.Error("expected a truncation notice once entries were dropped")
	}
}

func TestAppendPreservesNewContentAfterTruncation(t *testing.T) {
	existing := strings.Repeat("old history ", 400)
	marker := "BRAND-NEW-MARKER"
	incoming := marker + " " + strings.Repeat("n", 200)

	got := Append(existing, incoming, testNow)
	if len(got) > MaxSnippetLength {
		t.Fatalf("result %d bytes exceeds cap", len(got))
	}
	if !strings.Contains(got, marker) {
		t.Error("new content must survive truncation")
	}
}

func TestAppendOversizedNewContentIsSliced(t *testing.T) {
	existing := "short base"
	incoming := strings.Repeat("y", 6000)

	got := Append(existing, incoming, testNow)
	if len(got) > MaxSnippetLength {
		t.Fatalf("result %d bytes exceeds cap", len(got))
	}
	if !strings.Contains(got, "[CONTENT TRUNCATED]") {
		t.Error("sliced new content should carry the truncated marker")
	}
	if !strings.Contains(got, "yyyy") {
		t.Error("a prefix of the new content must be present")
	}
}

func TestAppendTailEntrySurvives(t *testing.T) {
	tail := "newest entry must remain " + strings.Repeat("t", 100)
	existing := strings.Repeat("a", 2000) +
		Separator(testNow.Add(-2*time.Hour)) + strings.Repeat("b", 2000) +
		Separator(testNow.Add(-time.Hour)) + tail

	got := Append(existing, "incoming piece of context "+strings.Repeat("z", 800), testNow)
	if len(got) > MaxSnippetLength {
		t.Fatalf("result %d bytes exceeds cap", len(got))
	}
	if !strings.Contains(got, "incoming piece of context") {
		t.Error("incoming content missing after truncation")
	}
}
